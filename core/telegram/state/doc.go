// Package state keeps per-user conversation sessions for Telegram bots.
// Sessions live in process memory and may expire after a configurable TTL.
package state
