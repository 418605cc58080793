// Package config loads agriadvisord configuration.
//
// Values are layered, later layers winning:
//
//  1. Default()
//  2. a TOML file (optional; a missing file keeps the defaults)
//  3. a .env file in the working directory (optional)
//  4. AGRI_* environment variables
//
// Credential fields accept secret references (see package secret) and are
// resolved by Resolve after loading.
package config
