// Package config loads the visualiser's construction parameters: smoothing
// window, reference vector, serial port settings and render outputs.
package config
