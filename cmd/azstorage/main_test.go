package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/meltwater/azstorage/settings"
	"github.com/meltwater/azstorage/test"
)

func TestResolveCommand(t *testing.T) {
	app := newApp()

	var out bytes.Buffer
	app.Writer = &out

	test.Ok(t, app.Run([]string{"azstorage", "--connection-string", "UseDevelopmentStorage=true", "resolve"}))

	got := out.String()
	test.Assert(t, strings.Contains(got, settings.FormatDevelopmentStorage), "expected format in %q", got)
	test.Assert(t, strings.Contains(got, "http://127.0.0.1:10000/devstoreaccount1/"), "expected blob endpoint in %q", got)
	test.Assert(t, !strings.Contains(got, settings.DevStoreAccountKey), "account key leaked in %q", got)
}

func TestResolveCommandRejectsInvalidConnectionString(t *testing.T) {
	app := newApp()
	app.Writer = &bytes.Buffer{}

	err := app.Run([]string{"azstorage", "--connection-string", "AccountName=acct;Unknown=1", "resolve"})
	test.ErrorIs(t, err, settings.ErrUnrecognizedSettingKey)
}

func TestBackendCommandRejectsInvalidLocationMode(t *testing.T) {
	app := newApp()
	app.Writer = &bytes.Buffer{}

	err := app.Run([]string{
		"azstorage",
		"--log.level", "none",
		"--connection-string", "UseDevelopmentStorage=true",
		"--container", "cache",
		"--location-mode", "Nearest",
		"ls",
	})
	test.NotOk(t, err)
}
