// Package ratelimit throttles failed logins with fixed-window counters.
//
// Counters live in Redis when FOTOCOPIE_REDIS_URL is configured so limits
// hold across replicas; otherwise an in-process counter is used.
package ratelimit
