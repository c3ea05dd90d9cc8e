package domain

import "errors"

var (
	ErrRoomNotFound      = errors.New("room not found")
	ErrAlreadyMember     = errors.New("user already in room")
	ErrMemberNotFound    = errors.New("user not in room")
	ErrNotOwner          = errors.New("only room owner can create tasks")
	ErrRoomCodeExhausted = errors.New("failed to generate a unique room code")
	ErrEmptyTranscript   = errors.New("empty transcript")
)
