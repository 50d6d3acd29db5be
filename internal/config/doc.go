// Package config loads, normalizes, and validates sphered daemon settings.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours the SPHERED_HELPER environment
// override. Settings cover the record and log locations, scheduler timing, the
// retrieval helper, and hook launch options; per-project agent files are the
// concern of package agent.
package config
