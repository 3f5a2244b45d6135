package authcore

import (
	"github.com/confportal/authcore/app"
)

type App = app.App

type AppBuilder = app.AppBuilder

func New() *AppBuilder {
	return app.NewApp()
}
