package revsense

import "testing"

func containsCode(codes []string, want string) bool {
	for _, c := range codes {
		if c == want {
			return true
		}
	}
	return false
}

func TestLint_DefaultProductionConfig(t *testing.T) {
	cfg := DefaultConfig()
	ws := cfg.Lint()

	if len(ws.AtLeast(LintWarn)) != 0 {
		t.Fatalf("default production config should not warn, got %v", ws.Codes())
	}
	if !containsCode(ws.Codes(), "audit_disabled") {
		t.Error("expected audit_disabled info")
	}
}

func TestLint_DevelopmentBypass(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Mode = ModeDevelopment
	ws := cfg.Lint()

	high := ws.AtLeast(LintHigh)
	if !containsCode(high.Codes(), "auth_bypassed") {
		t.Fatalf("expected auth_bypassed, got %v", ws.Codes())
	}
	if containsCode(ws.Codes(), "mode_unrecognized") {
		t.Error("development is a known mode")
	}
	if containsCode(ws.Codes(), "audit_disabled") {
		t.Error("audit_disabled only applies to production")
	}
}

func TestLint_UnrecognizedMode(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Mode = ParseMode("prod")
	codes := cfg.Lint().Codes()

	if !containsCode(codes, "mode_unrecognized") || !containsCode(codes, "auth_bypassed") {
		t.Fatalf("expected mode_unrecognized and auth_bypassed, got %v", codes)
	}
}

func TestLint_PublicCatchAll(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PublicRoutes = []string{"/(.*)"}
	if !containsCode(cfg.Lint().Codes(), "public_catch_all") {
		t.Fatal("expected public_catch_all")
	}
}

func TestLint_SignInNotPublic(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SignInURL = "/login"
	if !containsCode(cfg.Lint().Codes(), "sign_in_not_public") {
		t.Fatal("expected sign_in_not_public")
	}

	cfg.SignInURL = "https://accounts.example.com/login"
	if containsCode(cfg.Lint().Codes(), "sign_in_not_public") {
		t.Fatal("hosted sign-in pages are not checked against public routes")
	}
}

func TestLint_EmptyMatcher(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Matcher = nil
	ws := cfg.Lint()
	if !containsCode(ws.Codes(), "matcher_all_paths") {
		t.Fatal("expected matcher_all_paths")
	}
	if containsCode(ws.AtLeast(LintWarn).Codes(), "matcher_all_paths") {
		t.Fatal("matcher_all_paths is informational")
	}
}

func TestLint_AuditEnabledSilencesInfo(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Audit.Enabled = true
	if len(cfg.Lint()) != 0 {
		t.Fatalf("expected no findings, got %v", cfg.Lint().Codes())
	}
}
