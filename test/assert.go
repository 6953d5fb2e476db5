// Package test contains assertion helpers shared by the package tests.
package test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// Assert fails the test if the condition is false.
func Assert(tb testing.TB, condition bool, msg string, v ...interface{}) {
	tb.Helper()

	if !condition {
		tb.Fatalf("\033[31m"+msg+"\033[39m\n", v...)
	}
}

// Ok fails the test if an err is not nil.
func Ok(tb testing.TB, err error) {
	tb.Helper()

	if err != nil {
		tb.Fatalf("\033[31munexpected error: %v\033[39m\n", err)
	}
}

// NotOk fails the test if an err is nil.
func NotOk(tb testing.TB, err error) {
	tb.Helper()

	if err == nil {
		tb.Fatal("\033[31mexpected error, got nothing\033[39m")
	}
}

// ErrorIs fails the test if err does not match target.
func ErrorIs(tb testing.TB, err, target error) {
	tb.Helper()

	if !errors.Is(err, target) {
		tb.Fatalf("\033[31mexpected error matching %v, got %v\033[39m\n", target, err)
	}
}

// Equals fails the test if exp is not equal to act.
func Equals(tb testing.TB, exp, act interface{}, opts ...cmp.Option) {
	tb.Helper()

	if diff := cmp.Diff(exp, act, opts...); diff != "" {
		tb.Fatalf("\033[31m(-expected +actual):\n%s\033[39m\n", diff)
	}
}
