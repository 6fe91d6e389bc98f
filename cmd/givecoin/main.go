package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/hopelink/givecoin/internal/clock"
	"github.com/hopelink/givecoin/internal/coinbase"
	"github.com/hopelink/givecoin/internal/config"
	"github.com/hopelink/givecoin/internal/donation"
	"github.com/hopelink/givecoin/internal/observability"
	"github.com/hopelink/givecoin/internal/providers"
	"github.com/hopelink/givecoin/internal/ratelimit"
	"github.com/hopelink/givecoin/internal/server"
	"github.com/hopelink/givecoin/internal/webhook"
	"github.com/hopelink/givecoin/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,

		providers.Module,
		coinbase.Module,
		donation.Module,
		webhook.Module,
		ratelimit.Module,
		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
