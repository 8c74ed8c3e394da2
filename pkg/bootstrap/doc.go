// Copyright © 2018 One Concern

// Package bootstrap sequences the steps preparing an environment.
//
// Steps are independent: by default they all run, one after the other, and their failures are
// reported together. Options switch to fail-fast or parallel execution.
package bootstrap
