/*
DESCRIPTION
  variables.go contains a list of structs that provide a variable Name,
  type in a string format, a function for updating the variable in the
  Config struct from a string, and a validation function to check the
  validity of the corresponding field value in the Config.

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

package config

import (
	"strconv"
	"strings"

	"github.com/ausocean/utils/logging"

	"github.com/ausocean/cap/scale"
)

// Config map keys.
const (
	KeyFrameRate     = "FrameRate"
	KeyGundamOverlap = "GundamOverlap"
	KeyHeight        = "Height"
	KeyInput         = "Input"
	KeyInputPath     = "InputPath"
	KeyLogging       = "logging"
	KeyOutputPath    = "OutputPath"
	KeyOutputs       = "Outputs"
	KeyPreset        = "Preset"
	KeyProcessors    = "Processors"
	KeyRTSPMount     = "RTSPMount"
	KeyRTSPPort      = "RTSPPort"
	KeyWidth         = "Width"
)

// Config map parameter types.
const (
	typeString = "string"
	typeUint   = "uint"
	typeFloat  = "float"
)

// Default variable values.
const (
	defaultInput     = InputFile
	defaultOutput    = OutputRTSP
	defaultVerbosity = logging.Error
	defaultFrameRate = 25
	defaultWidth     = 1280
	defaultHeight    = 720
	defaultRTSPPort  = 8554
	defaultRTSPMount = "/cap"
	defaultPreset    = "p4"
)

// Variables describes the variables that can be used for capture
// control. These structs provide the name and type of variable, a
// function for updating this variable in a Config, and a function for
// validating the value of the variable.
var Variables = []struct {
	Name     string
	Type     string
	Update   func(*Config, string)
	Validate func(*Config)
}{
	{
		Name:   KeyFrameRate,
		Type:   typeUint,
		Update: func(c *Config, v string) { c.FrameRate = parseUint(KeyFrameRate, v, c) },
		Validate: func(c *Config) {
			if c.FrameRate == 0 {
				c.LogInvalidField(KeyFrameRate, defaultFrameRate)
				c.FrameRate = defaultFrameRate
			}
		},
	},
	{
		Name:   KeyGundamOverlap,
		Type:   typeFloat,
		Update: func(c *Config, v string) { c.GundamOverlap = parseFloat(KeyGundamOverlap, v, c) },
		Validate: func(c *Config) {
			if c.GundamOverlap < 0 || c.GundamOverlap >= 1 {
				c.LogInvalidField(KeyGundamOverlap, 0)
				c.GundamOverlap = 0
			}
		},
	},
	{
		Name:   KeyHeight,
		Type:   typeUint,
		Update: func(c *Config, v string) { c.Height = parseUint(KeyHeight, v, c) },
		Validate: func(c *Config) {
			if c.Height == 0 {
				c.LogInvalidField(KeyHeight, defaultHeight)
				c.Height = defaultHeight
			}
		},
	},
	{
		Name: KeyInput,
		Type: "enum:file,manual",
		Update: func(c *Config, v string) {
			switch strings.ToLower(v) {
			case "file":
				c.Input = InputFile
			case "manual":
				c.Input = InputManual
			default:
				c.Logger.Warning("invalid Input param", "value", v)
			}
		},
		Validate: func(c *Config) {
			switch c.Input {
			case InputFile, InputManual:
			default:
				c.LogInvalidField(KeyInput, defaultInput)
				c.Input = defaultInput
			}
		},
	},
	{
		Name:   KeyInputPath,
		Type:   typeString,
		Update: func(c *Config, v string) { c.InputPath = v },
	},
	{
		Name: KeyLogging,
		Type: "enum:Debug,Info,Warning,Error,Fatal",
		Update: func(c *Config, v string) {
			switch v {
			case "Debug":
				c.LogLevel = logging.Debug
			case "Info":
				c.LogLevel = logging.Info
			case "Warning":
				c.LogLevel = logging.Warning
			case "Error":
				c.LogLevel = logging.Error
			case "Fatal":
				c.LogLevel = logging.Fatal
			default:
				c.Logger.Warning("invalid Logging param", "value", v)
			}
		},
		Validate: func(c *Config) {
			switch c.LogLevel {
			case logging.Debug, logging.Info, logging.Warning, logging.Error, logging.Fatal:
			default:
				c.LogInvalidField("LogLevel", defaultVerbosity)
				c.LogLevel = defaultVerbosity
			}
		},
	},
	{
		Name:   KeyOutputPath,
		Type:   typeString,
		Update: func(c *Config, v string) { c.OutputPath = v },
	},
	{
		Name: KeyOutputs,
		Type: "enums:rtsp,file",
		Update: func(c *Config, v string) {
			outputs := strings.Split(v, ",")
			c.Outputs = make([]uint8, 0, len(outputs))
			for _, o := range outputs {
				switch strings.ToLower(strings.TrimSpace(o)) {
				case "rtsp":
					c.Outputs = append(c.Outputs, OutputRTSP)
				case "file":
					c.Outputs = append(c.Outputs, OutputFile)
				default:
					c.Logger.Warning("invalid Outputs param", "value", o)
				}
			}
		},
		Validate: func(c *Config) {
			if len(c.Outputs) == 0 {
				c.LogInvalidField(KeyOutputs, "rtsp")
				c.Outputs = []uint8{defaultOutput}
			}
		},
	},
	{
		Name:   KeyPreset,
		Type:   "enum:p2_56,p4,p6_9,p9,p10_24",
		Update: func(c *Config, v string) { c.Preset = strings.ToLower(v) },
		Validate: func(c *Config) {
			_, err := scale.ParsePreset(c.Preset)
			if err != nil {
				c.LogInvalidField(KeyPreset, defaultPreset)
				c.Preset = defaultPreset
			}
		},
	},
	{
		Name: KeyProcessors,
		Type: "enums:scaling,gundam",
		Update: func(c *Config, v string) {
			if v == "" {
				c.Processors = nil
				return
			}
			procs := strings.Split(v, ",")
			c.Processors = make([]uint8, 0, len(procs))
			for _, p := range procs {
				switch strings.ToLower(strings.TrimSpace(p)) {
				case "scaling":
					c.Processors = append(c.Processors, ProcessorScaling)
				case "gundam":
					c.Processors = append(c.Processors, ProcessorGundam)
				default:
					c.Logger.Warning("invalid Processors param", "value", p)
				}
			}
		},
	},
	{
		Name:   KeyRTSPMount,
		Type:   typeString,
		Update: func(c *Config, v string) { c.RTSPMount = v },
		Validate: func(c *Config) {
			if c.RTSPMount == "" {
				c.LogInvalidField(KeyRTSPMount, defaultRTSPMount)
				c.RTSPMount = defaultRTSPMount
			}
		},
	},
	{
		Name:   KeyRTSPPort,
		Type:   typeUint,
		Update: func(c *Config, v string) { c.RTSPPort = parseUint(KeyRTSPPort, v, c) },
		Validate: func(c *Config) {
			if c.RTSPPort == 0 || c.RTSPPort > 65535 {
				c.LogInvalidField(KeyRTSPPort, defaultRTSPPort)
				c.RTSPPort = defaultRTSPPort
			}
		},
	},
	{
		Name:   KeyWidth,
		Type:   typeUint,
		Update: func(c *Config, v string) { c.Width = parseUint(KeyWidth, v, c) },
		Validate: func(c *Config) {
			if c.Width == 0 {
				c.LogInvalidField(KeyWidth, defaultWidth)
				c.Width = defaultWidth
			}
		},
	},
}

func parseUint(n, v string, c *Config) uint {
	p, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		c.Logger.Warning("invalid "+n+" param", "value", v)
		return 0
	}
	return uint(p)
}

func parseFloat(n, v string, c *Config) float64 {
	p, err := strconv.ParseFloat(v, 64)
	if err != nil {
		c.Logger.Warning("invalid "+n+" param", "value", v)
		return 0
	}
	return p
}
