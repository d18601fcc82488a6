package onboard

// State is a point-in-time snapshot of the vehicle, published by the state feed.
type State struct {
	Name       string        `json:"name"`
	Running    bool          `json:"running"`
	Overridden bool          `json:"overridden"`
	Reversal   ReversalState `json:"reversal"`
	Drive      ChannelState  `json:"drive"`
	Steer      ChannelState  `json:"steer"`
}

func Snapshot(ctrl *Controller, train *Drivetrain) State {
	return State{
		Name:       ctrl.Name(),
		Running:    ctrl.IsRunning(),
		Overridden: ctrl.IsOverridden(),
		Reversal:   train.State(),
		Drive:      train.DriveChannel().State(),
		Steer:      train.SteerChannel().State(),
	}
}
