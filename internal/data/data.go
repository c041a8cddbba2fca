package data

import (
	"github.com/anthropics/signal-command-bot/internal/biz/repo"
	"github.com/anthropics/signal-command-bot/internal/infra/signal"
)

// Repositories contains all repositories
type Repositories struct {
	Signal    repo.SignalRepo
	Message   repo.MessageRepo
	Reaction  repo.ReactionRepo
	Analytics repo.AnalyticsRepo
	ErrorLog  repo.ErrorLogRepo
}

// NewRepositories creates all repositories over one shared database
func NewRepositories(client *signal.Client, dbPath string) (*Repositories, error) {
	db, err := OpenDB(dbPath)
	if err != nil {
		return nil, err
	}

	messageRepo, err := NewMessageRepo(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	reactionRepo, err := NewReactionRepo(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	analyticsRepo, err := NewAnalyticsRepo(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	errorLogRepo, err := NewErrorLogRepo(db)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Repositories{
		Signal:    NewSignalRepo(client),
		Message:   messageRepo,
		Reaction:  reactionRepo,
		Analytics: analyticsRepo,
		ErrorLog:  errorLogRepo,
	}, nil
}
