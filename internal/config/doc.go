// Package config provides centralized configuration management for TierVC.
//
// # Configuration Sources
//
// Configuration is layered, later sources overriding earlier ones:
//
//  1. Built-in defaults (Default)
//  2. A YAML file (config.yaml or configs/config.yaml, or TIERVC_CONFIG_FILE)
//  3. Environment variables prefixed with TIERVC_
//
// A .env file in the working directory is loaded first, so everything above
// can also be set there.
//
// # Environment Variables
//
//	TIERVC_SERVER_PORT=8000
//	TIERVC_STREAM_IDLE_TIMEOUT=60s
//	TIERVC_EVALUATION_MAX_RECORDS=10
//	TIERVC_PROVIDERS_JUDGE_MODEL=gpt-4o-mini
//
// Provider credentials use their conventional unprefixed names:
//
//	OPENROUTER_API_KEY, ANTHROPIC_API_KEY, OPENAI_API_KEY, GEMINI_API_KEY
//
// # Google Sheets
//
// GOOGLE_APPLICATION_CREDENTIALS, or TIERVC_SHEETS_CREDENTIALS_FILE, points at
// the service account used by the Sheets importer.
package config
