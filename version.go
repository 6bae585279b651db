package genius

// Version is overridden at build time with -ldflags "-X github.com/2lab-ai/2hal9-demo-sub001.Version=...".
var Version = "0.1.0-dev"
