// Package config - runtime settings for the censor command.
//
// Settings come from, in increasing priority: built-in defaults, a .env file,
// CENSOR_* environment variables and command-line flags (applied by the
// command itself).
package config

import (
	"os"
	"runtime"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "CENSOR_"

// Config holds every setting of a censor run.
type Config struct {
	Input      string  `validate:"required"`
	Output     string  `validate:"required"`
	Transforms string  `validate:"required"`
	Confidence int     `validate:"gte=0,lte=100"`
	NMS        float64 `validate:"gte=0,lte=1"`
	Threads    int     `validate:"gte=1,lte=256"`
	Downscale  bool
	MaxDim     int `validate:"gte=16"`
	Padding    int `validate:"gte=0"`
	Debug      bool
	Texture    string
	BlockScale float64 `validate:"gt=0,lte=1"`
	Seed       uint64
	Sigma      float64 `validate:"gte=0"`
	Border     string  `validate:"oneof=extend mirror wrap crop"`
	Detector   string  `validate:"oneof=yunet onnx"`
	Model      string  `validate:"required"`
	OnnxLib    string
	Codec      string `validate:"oneof=imaging opencv"`
	MaxFrames  int    `validate:"gte=1"`
	FourCC     string `validate:"len=4"`
	LogLevel   string `validate:"oneof=trace debug info warn error"`
	LogFile    string
}

// Defaults returns the built-in settings.
func Defaults() Config {
	return Config{
		Output:     "out",
		Transforms: "pixelate",
		Confidence: 80,
		NMS:        0.3,
		Threads:    runtime.NumCPU(),
		Downscale:  true,
		MaxDim:     640,
		BlockScale: 0.2,
		Border:     "extend",
		Detector:   "yunet",
		Model:      "models/face_detection_yunet_2023mar.onnx",
		Codec:      "imaging",
		MaxFrames:  1000,
		FourCC:     "mp4v",
		LogLevel:   "info",
	}
}

// Load returns the defaults overridden by envFile (when it exists) and the
// environment. A missing envFile is not an error.
func Load(envFile string) (Config, error) {
	if envFile != "" {
		if _, err := os.Stat(envFile); err == nil {
			if err := godotenv.Load(envFile); err != nil {
				return Config{}, errors.Wrapf(err, "failed to load %s", envFile)
			}
		}
	}

	c := Defaults()
	c.Input = getEnv("INPUT", c.Input)
	c.Output = getEnv("OUTPUT", c.Output)
	c.Transforms = getEnv("TRANSFORMS", c.Transforms)
	c.Confidence = getEnvAsInt("CONFIDENCE", c.Confidence)
	c.NMS = getEnvAsFloat("NMS", c.NMS)
	c.Threads = getEnvAsInt("THREADS", c.Threads)
	c.Downscale = getEnvAsBool("DOWNSCALE", c.Downscale)
	c.MaxDim = getEnvAsInt("MAX_DIM", c.MaxDim)
	c.Padding = getEnvAsInt("PADDING", c.Padding)
	c.Debug = getEnvAsBool("DEBUG", c.Debug)
	c.Texture = getEnv("TEXTURE", c.Texture)
	c.BlockScale = getEnvAsFloat("BLOCK_SCALE", c.BlockScale)
	c.Seed = uint64(getEnvAsInt64("SEED", int64(c.Seed)))
	c.Sigma = getEnvAsFloat("SIGMA", c.Sigma)
	c.Border = getEnv("BORDER", c.Border)
	c.Detector = getEnv("DETECTOR", c.Detector)
	c.Model = getEnv("MODEL", c.Model)
	c.OnnxLib = getEnv("ONNX_LIB", c.OnnxLib)
	c.Codec = getEnv("CODEC", c.Codec)
	c.MaxFrames = getEnvAsInt("MAX_FRAMES", c.MaxFrames)
	c.FourCC = getEnv("FOURCC", c.FourCC)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.LogFile = getEnv("LOG_FILE", c.LogFile)
	return c, nil
}

var validate = validator.New()

// Validate checks every field against its constraints.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "invalid configuration")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(EnvPrefix + key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(EnvPrefix + key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(EnvPrefix + key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(EnvPrefix + key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(EnvPrefix + key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
