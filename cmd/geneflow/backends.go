package main

import (
	"github.com/go-resty/resty/v2"

	"github.com/geneflow-org/geneflow/internal/backend"
	"github.com/geneflow-org/geneflow/internal/datamgr"
)

// defaultBackends wires the local execution context and the local/agave
// data schemes. The CLI does not expose flags to configure
// slurm/gridengine/remote-REST backends; a deployment that needs them
// wires its own Registry/Importers in place of this helper.
func defaultBackends() (*backend.Registry, *datamgr.Manager, map[string]*datamgr.Agave) {
	registry := backend.NewRegistry()
	registry.Add("local", backend.NewLocalContext())

	dataMgr := datamgr.NewManager()
	dataMgr.Register("local", datamgr.NewLocal())
	dataMgr.Register("agave", datamgr.NewAgave(resty.New()))

	return registry, dataMgr, map[string]*datamgr.Agave{}
}
