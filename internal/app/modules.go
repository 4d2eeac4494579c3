package app

import (
	"github.com/sloria/paradigm/internal/registry"
	"github.com/sloria/paradigm/modules/fixation"
	"github.com/sloria/paradigm/modules/instructions"
	"github.com/sloria/paradigm/modules/pause"
	"github.com/sloria/paradigm/modules/print"
)

// coreModules is the definitive list of all custom stimulus modules that are
// compiled into the paradigm binary.
var coreModules = []registry.Module{
	&fixation.Module{},
	&instructions.Module{},
	&pause.Module{},
	&print.Module{},
}
