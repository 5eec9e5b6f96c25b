package main

import (
	"newspop/cmd/handlers"
	"newspop/internal/logger"
)

func main() {
	logger.Init()
	handlers.Execute()
}
