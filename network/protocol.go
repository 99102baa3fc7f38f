package network

const (
	MsgTypeHeartbeat = 1

	// Client -> server commands.
	MsgTypeCreateRoom   = 101
	MsgTypeResumeHost   = 102
	MsgTypeJoinRoom     = 103
	MsgTypeSelectTeam   = 104
	MsgTypeLeaveTeam    = 105
	MsgTypeLockAction   = 106
	MsgTypeStartGame    = 107
	MsgTypePlayAgain    = 108
	MsgTypeEndSession   = 109
	MsgTypeUpdateConfig = 110

	// Server -> client notifications.
	MsgTypeError        = 201
	MsgTypeRoomCreated  = 301
	MsgTypeJoined       = 302
	MsgTypeGameState    = 303
	MsgTypeActionLocked = 304
	MsgTypeRoundStart   = 305
	MsgTypeRoundEnd     = 306
	MsgTypeGameEnded    = 307
)
