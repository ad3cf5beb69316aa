/*
Package main runs the Kazakh prediction engine as a msgpack IPC service.

Sozdik answers prefix completion, keyboard/phonetic spell correction and
bigram context prediction against precompiled dictionaries, and maintains
a per-user learned-word dictionary that persists across runs.

# Usage

Start the service with dictionaries:

	sozdik -unigram data/unigram.bin -bigram data/bigram.bin -userdict ~/.sozdik/user.dict

Enable debug logging:

	sozdik -unigram data/unigram.bin -d

Requests arrive as msgpack over stdin; responses leave over stdout. See
pkg/server for the message layout.

# Configuration

Runtime tuning lives in a TOML file, created with defaults on first run:

	[engine]
	fast_limit = 10
	smart_limit = 15

	[spell]
	max_input_len = 10
	fast_distance_max = 2

	[userdict]
	decay_days = 30

Dictionary paths given on the command line override the config file.
*/
package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"

	"github.com/qazboard/sozdik/internal/logger"
	"github.com/qazboard/sozdik/pkg/config"
	"github.com/qazboard/sozdik/pkg/server"
	"github.com/qazboard/sozdik/pkg/session"
)

func main() {
	unigramPath := flag.String("unigram", "", "unigram dictionary file")
	bigramPath := flag.String("bigram", "", "bigram dictionary file")
	userDictPath := flag.String("userdict", "", "user dictionary file")
	configPath := flag.String("config", "", "config file path")
	debug := flag.Bool("d", false, "enable debug logging")
	flag.Parse()

	if *debug {
		log.SetLevel(log.DebugLevel)
	}
	log.SetDefault(logger.Default("sozdik"))

	cfg, activePath, err := config.LoadConfigWithPriority(*configPath)
	if err != nil {
		log.Warnf("config unavailable, using defaults: %v", err)
		cfg = config.DefaultConfig()
	}
	if activePath != "" {
		log.Debugf("using config at %s", activePath)
	}

	if *unigramPath == "" {
		*unigramPath = cfg.Engine.UnigramPath
	}
	if *bigramPath == "" {
		*bigramPath = cfg.Engine.BigramPath
	}
	if *userDictPath == "" {
		*userDictPath = cfg.Engine.UserDictPath
	}

	sess := session.New(cfg)
	defer sess.Close()

	if *unigramPath != "" {
		if err := sess.LoadUnigram(*unigramPath); err != nil {
			log.Errorf("loading unigram dictionary: %v", err)
		}
	}
	if *bigramPath != "" {
		if err := sess.LoadBigram(*bigramPath); err != nil {
			log.Errorf("loading bigram dictionary: %v", err)
		}
	}
	if *userDictPath != "" {
		if err := sess.UserLoad(*userDictPath); err != nil {
			log.Errorf("loading user dictionary: %v", err)
		}
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Debugf("received %v, shutting down", sig)
		sess.Close()
		os.Exit(0)
	}()

	srv := server.NewServer(sess, cfg, os.Stdin, os.Stdout)
	if err := srv.Start(); err != nil {
		log.Errorf("server stopped: %v", err)
		os.Exit(1)
	}
}
