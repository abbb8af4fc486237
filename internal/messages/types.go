package messages

// UiSetupValue is one name/value pair of Node configuration.
type UiSetupValue struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// NewUiSetupValue builds a UiSetupValue.
func NewUiSetupValue(name, value string) UiSetupValue {
	return UiSetupValue{Name: name, Value: value}
}

// UiSetup carries setup values in both directions: the UI sends the values
// it wants changed and the Daemon replies with the resulting configuration.
type UiSetup struct {
	Values []UiSetupValue `json:"values"`
}

func (UiSetup) Opcode() string { return "setup" }
func (UiSetup) IsTwoWay() bool { return true }

// UiStartOrder asks the Daemon to launch the Node.
type UiStartOrder struct{}

func (UiStartOrder) Opcode() string { return "start" }
func (UiStartOrder) IsTwoWay() bool { return true }

type UiStartResponse struct {
	NewProcessID   uint32 `json:"newProcessId"`
	RedirectUIPort uint16 `json:"redirectUiPort"`
}

func (UiStartResponse) Opcode() string { return "start" }
func (UiStartResponse) IsTwoWay() bool { return true }

// UiShutdownOrder tells the Node to stop. No reply is sent; the Node breaks
// the connection instead.
type UiShutdownOrder struct{}

func (UiShutdownOrder) Opcode() string { return "shutdownOrder" }
func (UiShutdownOrder) IsTwoWay() bool { return false }

type UiDescriptorRequest struct{}

func (UiDescriptorRequest) Opcode() string { return "descriptor" }
func (UiDescriptorRequest) IsTwoWay() bool { return true }

type UiDescriptorResponse struct {
	NodeDescriptor string `json:"nodeDescriptor"`
}

func (UiDescriptorResponse) Opcode() string { return "descriptor" }
func (UiDescriptorResponse) IsTwoWay() bool { return true }

// UiCrashRequest makes the named actor panic with PanicMessage. Test use only.
type UiCrashRequest struct {
	Actor        string `json:"actor"`
	PanicMessage string `json:"panicMessage"`
}

func (UiCrashRequest) Opcode() string { return "crash" }
func (UiCrashRequest) IsTwoWay() bool { return false }

type UiCheckPasswordRequest struct {
	DBPasswordOpt *string `json:"dbPasswordOpt"`
}

func (UiCheckPasswordRequest) Opcode() string { return "checkPassword" }
func (UiCheckPasswordRequest) IsTwoWay() bool { return true }

type UiCheckPasswordResponse struct {
	Matches bool `json:"matches"`
}

func (UiCheckPasswordResponse) Opcode() string { return "checkPassword" }
func (UiCheckPasswordResponse) IsTwoWay() bool { return true }

// UiChangePasswordRequest sets the database password. OldPasswordOpt is nil
// when no password has been set yet.
type UiChangePasswordRequest struct {
	OldPasswordOpt *string `json:"oldPasswordOpt"`
	NewPassword    string  `json:"newPassword"`
}

func (UiChangePasswordRequest) Opcode() string { return "changePassword" }
func (UiChangePasswordRequest) IsTwoWay() bool { return true }

type UiChangePasswordResponse struct{}

func (UiChangePasswordResponse) Opcode() string { return "changePassword" }
func (UiChangePasswordResponse) IsTwoWay() bool { return true }

// UiNewPasswordBroadcast is sent to every UI when the password changes.
type UiNewPasswordBroadcast struct{}

func (UiNewPasswordBroadcast) Opcode() string { return "newPassword" }
func (UiNewPasswordBroadcast) IsTwoWay() bool { return false }
