// Package ops holds the operations behind the CLI commands: spec
// parsing and version selection, dependency resolution, build-order
// planning, building, and the install/remove orchestrators. Each op is
// a small struct; zero values work, exported fields configure them.
package ops

import (
	"github.com/hashicorp/go-hclog"
	"github.com/pkg/errors"
)

type common struct {
	logger hclog.Logger
}

func (c *common) L() hclog.Logger {
	if c.logger != nil {
		return c.logger
	}

	c.logger = hclog.L()

	return c.logger
}

func (c *common) SetLogger(logger hclog.Logger) {
	c.logger = logger
}

func track(err error) error {
	return errors.WithStack(err)
}
