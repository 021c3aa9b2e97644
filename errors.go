/*
Copyright © 2026 MohitCh011
*/

package main

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"
)

// Room-scoped failures. All of these are recoverable: they surface to the
// offending client as a single "error" event and never affect other rooms.
var (
	ErrRoomNotFound  = errors.New("Room not found")
	ErrRoomFull      = errors.New("Room is full")
	ErrOutOfTurn     = errors.New("Not your turn")
	ErrNotActive     = errors.New("Game has not started")
	ErrAlreadyInRoom = errors.New("Already in a room")
	ErrEmptyInput    = errors.New("Missing name or room code")
)

func logf(cfg *Config, format string, args ...any) {
	if !cfg.verbose {
		return
	}

	log.Printf("%s | "+format, append([]any{time.Now().Format(logDate)}, args...)...)
}

func newPage(title, body string) string {
	var htmlBody strings.Builder

	htmlBody.WriteString(`<!DOCTYPE html><html lang="en"><head>`)
	htmlBody.WriteString(`<style>`)
	htmlBody.WriteString(`html,body,a{display:block;height:100%;width:100%;text-decoration:none;color:inherit;cursor:auto;}</style>`)
	htmlBody.WriteString(fmt.Sprintf("<title>%s</title></head>", title))
	htmlBody.WriteString(fmt.Sprintf("<body><a href=\"/\">%s</a></body></html>", body))

	return htmlBody.String()
}
