// Package file loads the docsync configuration from a TOML file, an optional
// .env file and DOCSYNC_* environment overrides.
//
// Secrets never live in the TOML file: it names the environment variables
// that hold them (api_key_env, password_env, dsn_env).
//
// A requests_per_second of 0 uses the provider's default pacing and a
// negative value disables pacing.
//
// chunking.unit = "tokens" needs the tiktoken BPE file for the configured
// encoding. It is downloaded on first use and cached in $TIKTOKEN_CACHE_DIR.
// Offline hosts set chunking.bpe_dir to a directory holding the published
// files, such as cl100k_base.tiktoken.
package file
