package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/pagenotes/internal/dbx"
	"github.com/dmitrijs2005/pagenotes/internal/server/repositories/notes"
	"github.com/dmitrijs2005/pagenotes/internal/server/repositories/ratings"
	"github.com/dmitrijs2005/pagenotes/internal/server/repositories/reports"
	"github.com/dmitrijs2005/pagenotes/internal/server/repositories/statuschanges"
	"github.com/dmitrijs2005/pagenotes/internal/server/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Notes(db dbx.DBTX) notes.Repository
	Ratings(db dbx.DBTX) ratings.Repository
	StatusChanges(db dbx.DBTX) statuschanges.Repository
	Reports(db dbx.DBTX) reports.Repository
}
