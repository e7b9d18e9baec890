package telegram

import "sync"

var inFlight sync.Map // chatID -> struct{}: в чате уже идёт распознавание

// acquireChat marks the chat busy. Returns false if an image is already being processed.
func acquireChat(chatID int64) bool {
	_, busy := inFlight.LoadOrStore(chatID, struct{}{})
	return !busy
}

func releaseChat(chatID int64) { inFlight.Delete(chatID) }
