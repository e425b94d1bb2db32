package main

import (
	"github.com/joeydtaylor/certipop/pkg/serverfx"
	"go.uber.org/fx"
)

func main() {
	fx.New(
		serverfx.Module(
			serverfx.WithService("certipop"),
			serverfx.WithManifestEnv("CERTIPOP_MANIFEST"),
			serverfx.WithDefaultManifest("manifest.toml"),
			serverfx.WithListenEnv("SERVER_LISTEN_ADDRESS"),
			serverfx.WithTLSCertKeyEnv("SSL_SERVER_CERTIFICATE", "SSL_SERVER_KEY"),
		),
	).Run()
}
