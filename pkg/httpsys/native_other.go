//go:build !windows || !(amd64 || arm64)

package httpsys

// unsupportedNative is the platform layer outside Windows: every call reports
// ERROR_NOT_SUPPORTED, so API.Supported is false.
type unsupportedNative struct{}

func newSystemNative() Native { return unsupportedNative{} }

func (unsupportedNative) Initialize(APIVersion, uint32) uint32 { return ErrorNotSupported }

func (unsupportedNative) CreateServerSession(APIVersion) (uint64, uint32) {
	return 0, ErrorNotSupported
}

func (unsupportedNative) CloseServerSession(uint64) uint32 { return ErrorNotSupported }

func (unsupportedNative) CreateURLGroup(uint64) (uint64, uint32) { return 0, ErrorNotSupported }

func (unsupportedNative) CloseURLGroup(uint64) uint32 { return ErrorNotSupported }

func (unsupportedNative) AddURLToURLGroup(uint64, string, uint64) uint32 {
	return ErrorNotSupported
}

func (unsupportedNative) RemoveURLFromURLGroup(uint64, string) uint32 { return ErrorNotSupported }

func (unsupportedNative) SetURLGroupProperty(uint64, PropertyInfo) uint32 {
	return ErrorNotSupported
}

func (unsupportedNative) FindURLGroupID(string, uintptr) (uint64, uint32) {
	return 0, ErrorNotSupported
}

func (unsupportedNative) CreateRequestQueue(APIVersion, string, uint32) (uintptr, uint32) {
	return 0, ErrorNotSupported
}

func (unsupportedNative) CloseRequestQueue(uintptr) uint32 { return ErrorNotSupported }

func (unsupportedNative) SetRequestQueueProperty(uintptr, PropertyInfo) uint32 {
	return ErrorNotSupported
}

func (unsupportedNative) SetFileCompletionNotificationModes(uintptr, uint8) error {
	return ErrNotSupported
}

func (unsupportedNative) WaitForDisconnect(uintptr, uint64, *Overlapped) (uint32, error) {
	return 0, ErrNotSupported
}

func (unsupportedNative) BindCompletionPort(uintptr) (CompletionPort, error) {
	return nil, ErrNotSupported
}

func (unsupportedNative) IsFeatureSupported(FeatureID) (bool, error) {
	return false, ErrEntryPointNotFound
}

func (unsupportedNative) HasEntryPoint(string) bool { return false }
