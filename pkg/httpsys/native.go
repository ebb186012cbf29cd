package httpsys

import "fmt"

// APIVersion is the HTTPAPI_VERSION passed to the native layer.
type APIVersion struct {
	Major uint16
	Minor uint16
}

// Version2 is the only API version this package speaks.
var Version2 = APIVersion{Major: 2, Minor: 0}

func (v APIVersion) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// InitializeServer is HTTP_INITIALIZE_SERVER.
const InitializeServer uint32 = 0x1

// Request queue creation flags (HTTP_CREATE_REQUEST_QUEUE_FLAG_*).
const (
	CreateQueueFlagNone         uint32 = 0
	CreateQueueFlagOpenExisting uint32 = 1
	CreateQueueFlagController   uint32 = 2
)

// PropertyFlagPresent is HTTP_PROPERTY_FLAG_PRESENT.
const PropertyFlagPresent uint32 = 0x1

// LimitInfinite is HTTP_LIMIT_INFINITE.
const LimitInfinite uint32 = 0xFFFFFFFF

// File completion notification modes for SetFileCompletionNotificationModes.
const (
	SkipCompletionPortOnSuccess uint8 = 1
	SkipSetEventOnHandle        uint8 = 2
)

// ServerProperty is HTTP_SERVER_PROPERTY.
type ServerProperty uint32

const (
	PropertyAuthentication  ServerProperty = 0
	PropertyLogging         ServerProperty = 1
	PropertyQos             ServerProperty = 2
	PropertyTimeouts        ServerProperty = 3
	PropertyQueueLength     ServerProperty = 4
	PropertyState           ServerProperty = 5
	Property503Verbosity    ServerProperty = 6
	PropertyBinding         ServerProperty = 7
	PropertyExtendedAuth    ServerProperty = 8
	PropertyListenEndpoint  ServerProperty = 9
	PropertyChannelBind     ServerProperty = 10
	PropertyProtectionLevel ServerProperty = 11
	PropertyDelegation      ServerProperty = 16
)

func (p ServerProperty) String() string {
	switch p {
	case PropertyAuthentication:
		return "Authentication"
	case PropertyLogging:
		return "Logging"
	case PropertyQos:
		return "Qos"
	case PropertyTimeouts:
		return "Timeouts"
	case PropertyQueueLength:
		return "QueueLength"
	case PropertyState:
		return "State"
	case Property503Verbosity:
		return "503Verbosity"
	case PropertyBinding:
		return "Binding"
	case PropertyExtendedAuth:
		return "ExtendedAuth"
	case PropertyListenEndpoint:
		return "ListenEndpoint"
	case PropertyChannelBind:
		return "ChannelBind"
	case PropertyProtectionLevel:
		return "ProtectionLevel"
	case PropertyDelegation:
		return "Delegation"
	default:
		return "Unknown"
	}
}

// FeatureID is HTTP_FEATURE_ID.
type FeatureID uint32

const (
	FeatureUnknown          FeatureID = 0
	FeatureResponseTrailers FeatureID = 1
	FeatureAPITimings       FeatureID = 2
	FeatureDelegateEx       FeatureID = 3
	FeatureHTTP3            FeatureID = 4
)

// Verbosity is HTTP_503_RESPONSE_VERBOSITY: how much the kernel says when it
// rejects a request because the queue is full.
type Verbosity uint32

const (
	VerbosityBasic   Verbosity = 0
	VerbosityLimited Verbosity = 1
	VerbosityFull    Verbosity = 2
)

func (v Verbosity) String() string {
	switch v {
	case VerbosityBasic:
		return "basic"
	case VerbosityLimited:
		return "limited"
	case VerbosityFull:
		return "full"
	default:
		return "unknown"
	}
}

// ParseVerbosity parses basic, limited or full.
func ParseVerbosity(s string) (Verbosity, error) {
	switch s {
	case "basic", "Basic", "":
		return VerbosityBasic, nil
	case "limited", "Limited":
		return VerbosityLimited, nil
	case "full", "Full":
		return VerbosityFull, nil
	default:
		return VerbosityBasic, NewError(ErrorInvalidParameter, "unknown rejection verbosity %q", s)
	}
}

// qosConnectionLimitType is HttpQosSettingTypeConnectionLimit.
const qosConnectionLimitType uint32 = 1

// PropertyInfo is a typed payload for a url group or request queue property.
// The platform layer marshals it to the matching native structure.
type PropertyInfo interface {
	Property() ServerProperty
}

// BindingInfo is HTTP_BINDING_INFO for PropertyBinding. A zero QueueHandle with
// Flags cleared removes the binding.
type BindingInfo struct {
	Flags       uint32
	QueueHandle uintptr
}

func (BindingInfo) Property() ServerProperty { return PropertyBinding }

// DelegationInfo is HTTP_BINDING_INFO for PropertyDelegation.
type DelegationInfo struct {
	Flags       uint32
	QueueHandle uintptr
}

func (DelegationInfo) Property() ServerProperty { return PropertyDelegation }

// QosConnectionLimit is HTTP_QOS_SETTING_INFO carrying HTTP_CONNECTION_LIMIT_INFO.
type QosConnectionLimit struct {
	Flags          uint32
	MaxConnections uint32
}

func (QosConnectionLimit) Property() ServerProperty { return PropertyQos }

// QueueLengthLimit is the ULONG payload for PropertyQueueLength.
type QueueLengthLimit uint32

func (QueueLengthLimit) Property() ServerProperty { return PropertyQueueLength }

// RejectionVerbosity is the payload for Property503Verbosity.
type RejectionVerbosity Verbosity

func (RejectionVerbosity) Property() ServerProperty { return Property503Verbosity }

// Completion is one dequeued I/O completion.
type Completion struct {
	Overlapped *Overlapped
	Status     uint32
	Bytes      uint32
}

// CompletionPort delivers completions for a handle bound to it.
type CompletionPort interface {
	// Dequeue blocks until a completion is available. It returns false once
	// the port has been closed.
	Dequeue() (Completion, bool)
	// Close releases the port. Blocked Dequeue calls return false.
	Close() error
}

// Native is the HTTP Server API call surface used by this package. Methods
// return the native status code; the error results report calls that could
// not be made at all, such as a missing entry point.
type Native interface {
	Initialize(version APIVersion, flags uint32) uint32

	CreateServerSession(version APIVersion) (uint64, uint32)
	CloseServerSession(id uint64) uint32

	CreateURLGroup(sessionID uint64) (uint64, uint32)
	CloseURLGroup(id uint64) uint32
	AddURLToURLGroup(groupID uint64, prefix string, context uint64) uint32
	RemoveURLFromURLGroup(groupID uint64, prefix string) uint32
	SetURLGroupProperty(groupID uint64, info PropertyInfo) uint32
	FindURLGroupID(prefix string, queue uintptr) (uint64, uint32)

	CreateRequestQueue(version APIVersion, name string, flags uint32) (uintptr, uint32)
	CloseRequestQueue(queue uintptr) uint32
	SetRequestQueueProperty(queue uintptr, info PropertyInfo) uint32
	SetFileCompletionNotificationModes(queue uintptr, modes uint8) error

	WaitForDisconnect(queue uintptr, connectionID uint64, ov *Overlapped) (uint32, error)

	BindCompletionPort(handle uintptr) (CompletionPort, error)

	IsFeatureSupported(feature FeatureID) (bool, error)
	HasEntryPoint(name string) bool
}
