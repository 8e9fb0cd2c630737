package types

// Every frame in either direction is an envelope:
//   { "type": string, "message": string | null, "data": object | null }
//
// Client -> Server
// CREATE_SESSION:  data.dishNames (or top-level dishNames): string[]
// REQUEST_NEXT:    no payload
// START_BLOCKABLE: no payload
// HEARTBEAT:       no payload
//
// Server -> Client
// CONNECT:         message = session id
// CREATE_SESSION:  message = session id (ack)
// REQUEST_NEXT:    data = StepPayload
// NO_NEXT_STEP:    message = reason, data = StepPayload | null
//                  (unstarted block, countdown, or "All dishes done !")
// START_BLOCKABLE: message = session id (ack)
// BLOCK_FINISHED:  message = notice, data = StepPayload (unsolicited)
// HEARTBEAT:       message = session id (ack)
// ERROR:           message = error text

const (
	TypeConnect        = "CONNECT"
	TypeCreateSession  = "CREATE_SESSION"
	TypeRequestNext    = "REQUEST_NEXT"
	TypeNoNextStep     = "NO_NEXT_STEP"
	TypeStartBlockable = "START_BLOCKABLE"
	TypeBlockFinished  = "BLOCK_FINISHED"
	TypeHeartbeat      = "HEARTBEAT"
	TypeError          = "ERROR"
)

type StepPayload struct {
	DishName        string           `json:"dishName"`
	StepNumber      int              `json:"stepNumber"`
	Description     string           `json:"description"`
	TimeRequirement *TimeRequirement `json:"timeRequirement"`
	TargetCondition *string          `json:"targetCondition"`
	HeatLevel       *string          `json:"heatLevel"`
	IsBlockable     bool             `json:"isBlockable"`
}

type TimeRequirement struct {
	Duration string `json:"duration"`
}
