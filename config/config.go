// HCL configuration for meter reader tools.
//
//	include "local.hcl" { optional = true }
//	uart { driver = "file" device = "/dev/ttyUSB0" baud = 1200 }
//	kmp { timeout_ms = 1000 retries = 15 retry_delay_ms = 100 }
//	register "0x0001" { label = "Energy in" unit = "kWh" }
package config

import (
	"path/filepath"
	"time"

	"github.com/hashicorp/hcl"
	"github.com/juju/errors"
	"github.com/temoto/kamstrup/hardware/kmp"
	"github.com/temoto/kamstrup/helpers"
	"github.com/temoto/kamstrup/log2"
)

type Config struct {
	// includeSeen contains absolute paths to prevent include loops
	includeSeen map[string]struct{}
	// only used for Unmarshal, do not access
	XXX_Include []Source `hcl:"include"`

	Uart struct {
		Device string `hcl:"device"`
		Driver string `hcl:"driver"` // file|serial|mock
		Baud   int    `hcl:"baud"`
	} `hcl:"uart"`

	Kmp struct {
		TimeoutMs    int  `hcl:"timeout_ms"`
		Retries      int  `hcl:"retries"`
		RetryDelayMs int  `hcl:"retry_delay_ms"`
		LogDebug     bool `hcl:"log_debug"`
	} `hcl:"kmp"`

	Registers []RegisterConfig `hcl:"register"`
}

type Source struct {
	Name     string `hcl:"name,key"`
	Optional bool   `hcl:"optional"`
}

type RegisterConfig struct {
	ID    string `hcl:"id,key"`
	Label string `hcl:"label"`
	Unit  string `hcl:"unit"`
}

func (c *Config) Timeout() time.Duration {
	return helpers.IntMillisecondDefault(c.Kmp.TimeoutMs, kmp.DefaultTimeout)
}

func (c *Config) RetryPolicy() kmp.RetryPolicy {
	p := kmp.DefaultRetryPolicy()
	if c.Kmp.Retries > 0 {
		p.Attempts = c.Kmp.Retries
	}
	if c.Kmp.RetryDelayMs > 0 {
		p.Backoff.Min = time.Duration(c.Kmp.RetryDelayMs) * time.Millisecond
		if p.Backoff.Max < p.Backoff.Min {
			p.Backoff.Max = p.Backoff.Min
		}
	}
	return p
}

// Registry merges configured registers over kmp.DefaultRegistry.
func (c *Config) Registry() (*kmp.Registry, error) {
	r := kmp.DefaultRegistry()
	errs := make([]error, 0)
	for _, rc := range c.Registers {
		id, err := kmp.ParseRegisterID(rc.ID)
		if err != nil {
			errs = append(errs, errors.Annotatef(err, "config register"))
			continue
		}
		reg := kmp.Register{ID: id, Label: rc.Label, Unit: rc.Unit}
		if prev, ok := r.Get(id); ok {
			if reg.Label == "" {
				reg.Label = prev.Label
			}
			if reg.Unit == "" {
				reg.Unit = prev.Unit
			}
		}
		if reg.Label == "" {
			reg.Label = id.String()
		}
		r.Add(reg)
	}
	return r, helpers.FoldErrors(errs)
}

func (c *Config) read(log *log2.Log, fs FullReader, source Source, errs *[]error) {
	norm := fs.Normalize(source.Name)
	log.Debugf("config reading source='%s' path=%s", source.Name, norm)
	c.includeSeen[source.Name] = struct{}{}
	c.includeSeen[norm] = struct{}{}

	bs, err := fs.ReadAll(norm)
	if bs == nil && err == nil {
		if !source.Optional {
			err = errors.NotFoundf("config required name=%s path=%s", source.Name, norm)
			*errs = append(*errs, err)
		}
		return
	}
	if err != nil {
		*errs = append(*errs, errors.Annotatef(err, "config source=%s", source.Name))
		return
	}

	err = hcl.Unmarshal(bs, c)
	if err != nil {
		err = errors.Annotatef(err, "config unmarshal source=%s", source.Name)
		*errs = append(*errs, err)
		return
	}

	var includes []Source
	includes, c.XXX_Include = c.XXX_Include, nil
	for _, include := range includes {
		includeNorm := fs.Normalize(include.Name)
		if _, ok := c.includeSeen[includeNorm]; ok {
			err = errors.Errorf("config include loop: from=%s include=%s", source.Name, include.Name)
			*errs = append(*errs, err)
			continue
		}
		c.read(log, fs, include, errs)
	}
}

func ReadConfig(log *log2.Log, fs FullReader, names ...string) (*Config, error) {
	if len(names) == 0 {
		return nil, errors.NotValidf("code error ReadConfig() without names")
	}

	if osfs, ok := fs.(*OsFullReader); ok {
		dir, name := filepath.Split(names[0])
		osfs.SetBase(dir)
		names[0] = name
	}
	c := &Config{
		includeSeen: make(map[string]struct{}),
	}
	errs := make([]error, 0, 8)
	for _, name := range names {
		if _, ok := c.includeSeen[fs.Normalize(name)]; ok {
			errs = append(errs, errors.Errorf("config duplicate source=%s", name))
			continue
		}
		c.read(log, fs, Source{Name: name}, &errs)
	}
	return c, helpers.FoldErrors(errs)
}

func MustReadConfig(log *log2.Log, fs FullReader, names ...string) *Config {
	c, err := ReadConfig(log, fs, names...)
	if err != nil {
		log.Fatal(errors.ErrorStack(err))
	}
	return c
}
