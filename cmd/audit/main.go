package main

import (
	"github.com/corray333/backend-labs/kitchen/internal/app"
	"github.com/corray333/backend-labs/kitchen/internal/config"
)

func main() {
	config.MustInit()
	app.MustNewAuditApp().Run()
}
