// Package config loads the CLI configuration file. The file is
// optional: every field has a default or a corresponding flag, and
// flags win over the file.
package config
