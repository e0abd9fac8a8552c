package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/factuur/internal/clock"
	"github.com/smallbiznis/factuur/internal/config"
	"github.com/smallbiznis/factuur/internal/migration"
	"github.com/smallbiznis/factuur/internal/server"
	"github.com/smallbiznis/factuur/pkg/db"
	"github.com/smallbiznis/factuur/pkg/log"
	"github.com/smallbiznis/factuur/pkg/telemetry"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		log.Module,
		telemetry.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,
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
