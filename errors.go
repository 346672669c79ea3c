/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"
)

func logf(cfg *Config, format string, args ...any) {
	if !cfg.verbose || cfg.logger == nil {
		return
	}

	cfg.logger.Infof(format, args...)
}

// entry returns a structured logger, falling back to a discarded one in tests.
func entry(cfg *Config, fields logrus.Fields) *logrus.Entry {
	logger := cfg.logger
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}
	return logger.WithFields(fields)
}

func newPage(title, href, body string) string {
	var htmlBody strings.Builder

	htmlBody.WriteString(`<!DOCTYPE html><html lang="en"><head>`)
	htmlBody.WriteString(`<style>`)
	htmlBody.WriteString(`html,body,a{display:block;height:100%;width:100%;text-decoration:none;color:inherit;cursor:auto;}</style>`)
	htmlBody.WriteString(fmt.Sprintf("<title>%s</title></head>", title))
	htmlBody.WriteString(fmt.Sprintf("<body><a href=\"%s\">%s</a></body></html>", href, body))

	return htmlBody.String()
}
