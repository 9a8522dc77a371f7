// Package conf holds the configuration scanned from configs/config.yaml.
package conf

import (
	"encoding/json"
	"fmt"
	"time"
)

// Bootstrap is the root of the configuration file.
type Bootstrap struct {
	Server *Server `json:"server"`
	Data   *Data   `json:"data"`
	Reply  *Reply  `json:"reply"`
	Image  *Image  `json:"image"`
	OCR    *OCR    `json:"ocr"`
}

type Server struct {
	HTTP *HTTP `json:"http"`
}

type HTTP struct {
	Network string   `json:"network"`
	Addr    string   `json:"addr"`
	Timeout Duration `json:"timeout"`
}

type Data struct {
	Database *Database `json:"database"`
	Redis    *Redis    `json:"redis"`
}

type Database struct {
	Driver string `json:"driver"`
	Source string `json:"source"`
	Pool   Pool   `json:"pool"`
}

// Pool configures pgxpool. Lifetimes are in minutes.
type Pool struct {
	MaxOpenConns    int32 `json:"max_open_conns"`
	MinIdleConns    int32 `json:"min_idle_conns"`
	MaxConnLifetime int64 `json:"max_conn_lifetime"`
	MaxConnIdleTime int64 `json:"max_conn_idle_time"`
}

type Redis struct {
	Network      string   `json:"network"`
	Addr         string   `json:"addr"`
	Password     string   `json:"password"`
	DB           int      `json:"db"`
	ReadTimeout  Duration `json:"read_timeout"`
	WriteTimeout Duration `json:"write_timeout"`
}

// Reply configures the rule cache.
type Reply struct {
	// RefreshChannel is the pub/sub channel replicas announce rule changes on.
	RefreshChannel string `json:"refresh_channel"`
	// ResyncInterval reloads every rule periodically. Zero disables it.
	ResyncInterval Duration `json:"resync_interval"`
}

// Image configures duplicate detection.
type Image struct {
	// IndexDriver is "postgres" or "memory".
	IndexDriver  string   `json:"index_driver"`
	Steps        []Step   `json:"steps"`
	InsertSteps  []Step   `json:"insert_steps"`
	Bloom        Bloom    `json:"bloom"`
	FetchTimeout Duration `json:"fetch_timeout"`
	MaxBytes     int64    `json:"max_bytes"`
}

// Step is one hashing algorithm, e.g. "dhash-8x8", with its threshold.
type Step struct {
	Algorithm  string  `json:"algorithm"`
	Threshold  float64 `json:"threshold"`
	Normalized bool    `json:"normalized"`
}

type Bloom struct {
	Enabled bool   `json:"enabled"`
	Bits    uint   `json:"bits"`
	Hashes  uint   `json:"hashes"`
	Prefix  string `json:"prefix"`
}

// OCR selects the text extraction backend. An empty driver disables OCR.
type OCR struct {
	Driver  string   `json:"driver"`
	Address string   `json:"address"`
	Model   string   `json:"model"`
	Timeout Duration `json:"timeout"`
	RPS     float64  `json:"rps"`
	Burst   int      `json:"burst"`
}

// Duration is a time.Duration written as "5s" in config files.
type Duration struct {
	time.Duration
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch value := v.(type) {
	case float64:
		d.Duration = time.Duration(value)
	case string:
		if value == "" {
			d.Duration = 0
			return nil
		}
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		d.Duration = parsed
	default:
		return fmt.Errorf("invalid duration %s", b)
	}
	return nil
}

// AsDuration returns the wrapped duration.
func (d Duration) AsDuration() time.Duration {
	return d.Duration
}
