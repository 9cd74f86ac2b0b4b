package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/park285/echecs/internal/cli"
	"github.com/park285/echecs/internal/client"
	appcfg "github.com/park285/echecs/internal/config"
	"github.com/park285/echecs/internal/game"
	"github.com/park285/echecs/internal/history"
	"github.com/park285/echecs/internal/msgcat"
	"github.com/park285/echecs/internal/obslog"
	"github.com/park285/echecs/internal/savegame"
	"go.uber.org/zap"
)

func main() {
	gameID := flag.String("game", "", "join this server game instead of creating one (remote mode)")
	player := flag.String("player", "local", "player id used in remote mode")
	flag.Parse()

	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	// the terminal belongs to the board; logs go to the file only
	opts := obslog.OptionsFromEnv(filepath.Join("logs", "echecs-cli.log"))
	opts.Console = false
	if err := obslog.Init(opts); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer func() { _ = obslog.L().Sync() }()

	msgs, err := msgcat.New(cfg.MessagesDir)
	if err != nil {
		log.Fatalf("messages error: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var backend cli.Backend
	if cfg.ServerURL != "" {
		remote, err := cli.NewRemote(ctx, client.New(cfg.ServerURL), *gameID, *player)
		if err != nil {
			log.Fatalf("connect %s: %v", cfg.ServerURL, err)
		}
		fmt.Printf("game %s on %s\n", remote.GameID(), cfg.ServerURL)
		obslog.L().Info("cli_remote", zap.String("server", cfg.ServerURL), zap.String("game_id", remote.GameID()))
		backend = remote
	} else {
		moves := history.NewLog(history.FileSink{Path: cfg.HistoryFile})
		if err := moves.Clear(); err != nil {
			obslog.L().Warn("history_truncate_failed", zap.String("path", cfg.HistoryFile), zap.Error(err))
		}
		backend = cli.NewLocal(game.New(), moves, savegame.NewFileStore(cfg.SaveDir))
	}

	repl := cli.New(backend, msgs, os.Stdout,
		cli.WithUnicode(cfg.BoardUnicode),
		cli.WithHistoryLimit(cfg.HistoryLimit),
	)
	fmt.Print(msgs.Text("cli.help", nil))
	if err := repl.Run(ctx, os.Stdin); err != nil && ctx.Err() == nil {
		log.Fatalf("input error: %v", err)
	}
}
