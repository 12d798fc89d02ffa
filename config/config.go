/*
DESCRIPTION
  config.go contains the configuration settings for a capture session.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>
  Trek Hopton <trek@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package config contains the configuration settings for the cap
// capture pipeline.
package config

import (
	"github.com/ausocean/utils/logging"
)

// Enums to define inputs, outputs and processors.
const (
	// Indicates no option has been set.
	NothingDefined = iota

	// Inputs.
	InputFile
	InputManual

	// Outputs.
	OutputRTSP
	OutputFile

	// Processors.
	ProcessorScaling
	ProcessorGundam
)

// Config provides parameters relevant to a capture session. A new
// config must be validated before use. Default values for fields are
// defined as consts in variables.go.
type Config struct {
	// Logger holds the logger used throughout the session. It also
	// receives configuration warnings during validation.
	Logger logging.Logger

	// LogLevel is the logging verbosity.
	LogLevel int8

	// Input selects the capture source kind.
	Input uint8

	// InputPath is the path of the raw BGRA frame file for InputFile.
	InputPath string

	Width     uint // Width of the capture source frames.
	Height    uint // Height of the capture source frames.
	FrameRate uint // FrameRate of capture and of the configured outputs.

	// Outputs defines the streams the session fans out to.
	Outputs []uint8

	// OutputPath is the destination of the file output's encoder.
	OutputPath string

	RTSPPort  uint   // RTSPPort is the RTSP server's port.
	RTSPMount string // RTSPMount is the RTSP mount path, e.g. "/cap".

	// Processors defines the frame processor chain, in order.
	Processors []uint8

	// Preset names the token preset used by the scaling processor,
	// e.g. "p9".
	Preset string

	// GundamOverlap is the tile overlap fraction used by the Gundam
	// processor.
	GundamOverlap float64
}

// Validate checks for any errors in the config fields and defaults
// settings if particular parameters have not been defined.
func (c *Config) Validate() error {
	for _, v := range Variables {
		if v.Validate != nil {
			v.Validate(c)
		}
	}
	return nil
}

// Update takes a map of configuration variable names and their
// corresponding values, parses the string values into the correct
// types, and sets the config struct fields as appropriate.
func (c *Config) Update(vars map[string]string) {
	for _, value := range Variables {
		if v, ok := vars[value.Name]; ok && value.Update != nil {
			value.Update(c, v)
		}
	}
}

// LogInvalidField logs the defaulting of a bad or unset field.
func (c *Config) LogInvalidField(name string, def interface{}) {
	c.Logger.Info(name+" bad or unset, defaulting", name, def)
}
