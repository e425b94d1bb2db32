package manifest

import (
	"errors"
	"fmt"

	"github.com/joeydtaylor/certipop/pkg/audit"
	"github.com/joeydtaylor/certipop/pkg/connector"
	"github.com/joeydtaylor/certipop/pkg/middleware/auth"
	"github.com/joeydtaylor/certipop/pkg/middleware/logger"
)

// Config is the top-level manifest.
type Config struct {
	Connector connector.Config `toml:"connector"`
	Auth      auth.Config      `toml:"auth"`
	Log       logger.Config    `toml:"log"`
	Audit     audit.Config     `toml:"audit"`
	Routes    []Route          `toml:"route"`
}

// Validate normalizes routes in place and checks the connector block.
func (c *Config) Validate() error {
	c.Connector = c.Connector.WithDefaults()
	if err := c.Connector.Validate(); err != nil {
		return fmt.Errorf("connector: %w", err)
	}
	if len(c.Routes) == 0 {
		return errors.New("no routes defined")
	}
	return c.validateRoutes()
}
