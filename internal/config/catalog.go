package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/couchcryptid/farm-sim-service/internal/domain"
	"github.com/couchcryptid/farm-sim-service/internal/weather"
	"gopkg.in/yaml.v3"
)

// Catalog is the optional YAML file overriding the built-in crop catalog,
// field catalog, and weather shape. Omitted sections keep their defaults.
//
//	crops:
//	  - name: Pomodori
//	    growthDays: 80
//	    optimalTemp: {min: 20, max: 32}
//	    ...
//	fields:
//	  - {id: 1, name: Campo 1, size: 5, cropIndex: 0}
//	weather:
//	  temperature: {min: -5, max: 40, mean: 18, stdDev: 8, seasonal: true}
type Catalog struct {
	Crops   []domain.CropProfile     `yaml:"crops"`
	Fields  []domain.FieldDefinition `yaml:"fields"`
	Weather *WeatherOverrides        `yaml:"weather"`
}

// WeatherOverrides replaces whole weather sections when present.
type WeatherOverrides struct {
	Temperature   *weather.TemperatureConfig   `yaml:"temperature"`
	Humidity      *weather.HumidityConfig      `yaml:"humidity"`
	Precipitation *weather.PrecipitationConfig `yaml:"precipitation"`
}

func (o *WeatherOverrides) apply(c *weather.Config) {
	if o.Temperature != nil {
		c.Temperature = *o.Temperature
	}
	if o.Humidity != nil {
		c.Humidity = *o.Humidity
	}
	if o.Precipitation != nil {
		c.Precipitation = *o.Precipitation
	}
}

// LoadCatalog reads and strictly decodes a catalog file. Unknown keys are errors.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes catalog YAML.
func ParseCatalog(data []byte) (*Catalog, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var c Catalog
	if err := dec.Decode(&c); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	return &c, nil
}
