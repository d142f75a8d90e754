package app

import (
	"github.com/valaphee/flow/internal/exec"
	"github.com/valaphee/flow/modules/branch"
	"github.com/valaphee/flow/modules/entry"
	"github.com/valaphee/flow/modules/httprequest"
	"github.com/valaphee/flow/modules/literal"
	"github.com/valaphee/flow/modules/logsink"
	"github.com/valaphee/flow/modules/mapops"
	"github.com/valaphee/flow/modules/math"
	"github.com/valaphee/flow/modules/sel"
)

// coreModules is the built-in node implementation set registered when no
// explicit modules are supplied.
func coreModules() []exec.Module {
	return []exec.Module{
		&entry.Module{},
		&branch.Module{},
		&sel.Module{},
		&math.Module{},
		&mapops.Module{},
		&literal.Module{},
		&logsink.Module{},
		&httprequest.Module{},
	}
}
