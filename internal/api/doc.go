// Package api exposes the REST surface for submitting token launches,
// inspecting launched tokens, and observing runtime health.
package api
