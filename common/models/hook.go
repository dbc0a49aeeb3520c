package models

import (
	"fmt"
	"strings"
)

// HookKind is a kind of repository event this application can subscribe to.
type HookKind string

const (
	HookKindPush HookKind = "push"
	HookKindPull HookKind = "pull"
)

var AllHookKinds = []HookKind{HookKindPush, HookKindPull}

func ParseHookKind(str string) (HookKind, error) {
	kind := HookKind(strings.ToLower(str))
	if !kind.Valid() {
		return "", fmt.Errorf("error unknown hook kind: %q", str)
	}
	return kind, nil
}

func (k HookKind) String() string {
	return string(k)
}

func (k HookKind) Valid() bool {
	return k == HookKindPush || k == HookKindPull
}

// ProviderEvent returns the name of the provider event a hook of this kind subscribes to.
func (k HookKind) ProviderEvent() string {
	switch k {
	case HookKindPush:
		return "push"
	case HookKindPull:
		return "pull_request"
	}
	return ""
}

// HookTransition is an enable or disable applied to a single (repo, kind).
type HookTransition string

const (
	HookTransitionEnable  HookTransition = "enable"
	HookTransitionDisable HookTransition = "disable"
)

// InboundHookTarget is the repo an inbound hook payload was addressed to, after validation.
type InboundHookTarget struct {
	Kind         HookKind
	Account      *Account
	Organization *Organization
	Repo         *Repo
}
