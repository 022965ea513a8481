package bot

import (
	"context"
	"fmt"
	"time"

	"lara-bot/internal/common/config"
	attendance "lara-bot/internal/features/attendance/service"
	"lara-bot/internal/features/audit"
	"lara-bot/internal/features/catalog"
	"lara-bot/internal/features/interaction"
	"lara-bot/internal/platform/forte"
)

// ForteBackend is the subset of the Forte client used by the handlers.
type ForteBackend interface {
	GetDiscordUser(ctx context.Context, discordID string) (*forte.User, bool, error)
	GetUser(ctx context.Context, userID string) (*forte.User, bool, error)
	CreditPoints(ctx context.Context, userID string, points int64) (forte.ID, error)
	ListItems(ctx context.Context, userID string) ([]forte.Item, error)
	DeleteItem(ctx context.Context, userID string, itemID forte.ID) error
	RefreshClientToken(ctx context.Context, clientID string) (string, error)
}

// Deps is the immutable context every handler group is built from.
type Deps struct {
	Config     *config.Config
	Messenger  Messenger
	Prompter   *interaction.Prompter
	Forte      ForteBackend
	Attendance attendance.AttendanceService
	Catalog    *catalog.Store
	Receipts   audit.Recorder
	StartedAt  time.Time
}

// NewRegistryFromDeps builds the registry with every command group registered.
func NewRegistryFromDeps(d *Deps) (*Registry, error) {
	r := NewRegistry(d.Config.Discord.Prefixes, d.Messenger)

	forteGroup, err := NewForteCommands(d).Group()
	if err != nil {
		return nil, err
	}

	cmds := append(NewUserCommands(d).Commands(), forteGroup)
	cmds = append(cmds, NewAdminCommands(d).Commands()...)
	if err := r.Register(cmds...); err != nil {
		return nil, fmt.Errorf("register commands: %w", err)
	}
	if err := r.Register(helpCommand(r)); err != nil {
		return nil, fmt.Errorf("register help: %w", err)
	}
	return r, nil
}
