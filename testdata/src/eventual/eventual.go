package eventual

// Config is writable until frozen.
type Config struct {
	frozen bool
	values map[string]string
}

func NewConfig() *Config {
	return &Config{values: map[string]string{}}
}

func (c *Config) Put(k, v string) {
	if c.frozen {
		panic("frozen")
	}
	c.values[k] = v
}

func (c *Config) Freeze() {
	if c.frozen {
		panic("frozen")
	}
	c.frozen = true
}

func (c *Config) Get(k string) string {
	return c.values[k]
}

func (c *Config) IsFrozen() bool {
	return c.frozen
}
