package cli

import (
	"bufio"
	"context"
	"io"
	"os"

	"github.com/dmitrijs2005/storefront/internal/client/api"
	"github.com/dmitrijs2005/storefront/internal/client/config"
	"github.com/dmitrijs2005/storefront/internal/server/models"
)

// apiClient is the part of api.Client the commands use.
type apiClient interface {
	Ping(ctx context.Context) (*models.Diagnostics, error)
	Register(ctx context.Context, req api.RegisterRequest) (*models.Account, error)
	Login(ctx context.Context, username, password string) (*models.Login, error)
	WhoAmI(ctx context.Context) (*models.Login, error)
	Logout(ctx context.Context) (string, error)
	LoggedIn() bool
}

type App struct {
	config   *config.Config
	client   apiClient
	userName string
	reader   *bufio.Reader
	out      io.Writer
}

func NewApp(c *config.Config) (*App, error) {
	return &App{
		config: c,
		client: api.New(c.ServerURL, c.RequestTimeout),
		reader: bufio.NewReader(os.Stdin),
		out:    os.Stdout,
	}, nil
}

func (a *App) isLoggedIn() bool {
	return a.client.LoggedIn()
}

func (a *App) getStatus() string {
	if a.isLoggedIn() && a.userName != "" {
		return a.userName
	}
	return "guest"
}

// Run starts the REPL on the app's reader.
func (a *App) Run(ctx context.Context) {
	printlnFn("Storefront CLI (type 'help' for commands), server", a.config.ServerURL)
	runREPL(ctx, a, a.getStatus, a.reader)
}
