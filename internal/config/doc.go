// Package config loads process settings for the revsense-gate binary with
// viper. It is the single place APP_ENV is read; the resulting mode is
// passed to the gate explicitly.
package config
