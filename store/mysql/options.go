//
// EvalOps is pleased to support the open source community by making evalforge available.
//
// Copyright (C) 2026 EvalOps, Inc.  All rights reserved.
//
// evalforge is licensed under the Apache License Version 2.0.
//
//

package mysql

import "time"

type options struct {
	tablePrefix     string
	skipSchemaInit  bool
	initTimeout     time.Duration
	maxOpenConns    int
	maxIdleConns    int
	connMaxLifetime time.Duration
}

func newOptions(opt ...Option) options {
	opts := options{
		initTimeout:     30 * time.Second,
		maxOpenConns:    16,
		maxIdleConns:    4,
		connMaxLifetime: time.Hour,
	}
	for _, o := range opt {
		o(&opts)
	}
	return opts
}

// Option configures the MySQL store.
type Option func(*options)

// WithTablePrefix applies a prefix to every table name.
func WithTablePrefix(prefix string) Option {
	return func(o *options) { o.tablePrefix = prefix }
}

// WithSkipSchemaInit disables the CREATE TABLE bootstrap, for
// deployments that manage the schema externally.
func WithSkipSchemaInit(skip bool) Option {
	return func(o *options) { o.skipSchemaInit = skip }
}

// WithInitTimeout bounds the schema bootstrap.
func WithInitTimeout(d time.Duration) Option {
	return func(o *options) { o.initTimeout = d }
}

// WithMaxOpenConns sets the connection pool ceiling.
func WithMaxOpenConns(n int) Option {
	return func(o *options) { o.maxOpenConns = n }
}

// WithMaxIdleConns sets the idle connection count.
func WithMaxIdleConns(n int) Option {
	return func(o *options) { o.maxIdleConns = n }
}

// WithConnMaxLifetime bounds connection reuse.
func WithConnMaxLifetime(d time.Duration) Option {
	return func(o *options) { o.connMaxLifetime = d }
}
