// Package config manages courtgrid configuration including CLI-derived
// settings, the optional .courtgrid YAML file, and XDG directory paths.
package config
