//go:build !unix

package main

import (
	"context"

	"example.com/server-time/core/serverdate"
)

func handleResume(ctx context.Context, c *serverdate.Clock) {}
