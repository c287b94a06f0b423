package store

import "basegraph.app/trigger/core/db/sqlc"

type Stores struct {
	queries *sqlc.Queries
}

func NewStores(queries *sqlc.Queries) *Stores {
	return &Stores{queries: queries}
}

func (s *Stores) Jobs() JobStore {
	return newJobStore(s.queries)
}

func (s *Stores) Builds() BuildStore {
	return newBuildStore(s.queries)
}
