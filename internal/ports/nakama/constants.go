package nakama

const (
	// RpcQuickMatch is the Nakama RPC id clients call to find or create a lobby.
	RpcQuickMatch = "quick_match"
	// RpcRejoinTicket asks a running match for a rejoin ticket.
	RpcRejoinTicket = "rejoin_ticket"

	// MatchNameSettlers is the authoritative match handler name registered with Nakama.
	MatchNameSettlers = "settlers_match"

	gameLabel = "settlers"
)

// Match label keys used by quick match queries.
const (
	labelKeyGame  = "game"
	labelKeyOpen  = "open"
	labelKeyPhase = "phase"
)

// Op codes for client messages and server messages.
const (
	// Client -> Server
	OpStartGame int64 = 1
	OpAction    int64 = 2 // body is a wire request naming an action type
	OpEndTurn   int64 = 3
	OpResync    int64 = 4

	// Server -> Client
	OpEvent    int64 = 101
	OpSnapshot int64 = 102
	OpView     int64 = 103 // send privately
	OpResult   int64 = 104 // send privately
	OpError    int64 = 105 // send privately
	OpLobby    int64 = 106
)

// Environment keys read from RUNTIME_CTX_ENV.
const (
	envBotsEnabled      = "settlers_bots_enabled"
	envBotMinDelay      = "settlers_bot_min_delay_sec"
	envBotMaxDelay      = "settlers_bot_max_delay_sec"
	envBotAutoFillDelay = "settlers_bot_auto_fill_delay_sec"
	envTicketSecret     = "settlers_ticket_secret"
)

const (
	gameConfigPath    = "data/game_config.json"
	botIdentitiesPath = "data/bot_identities.json"
	tickRate          = 5
)
