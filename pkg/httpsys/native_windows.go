//go:build windows && (amd64 || arm64)

package httpsys

import (
	"errors"
	"fmt"
	"runtime"
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/windows"
)

const httpapiDLL = "httpapi.dll"

var (
	modhttpapi = windows.NewLazySystemDLL(httpapiDLL)

	procHttpInitialize              = modhttpapi.NewProc("HttpInitialize")
	procHttpCreateServerSession     = modhttpapi.NewProc("HttpCreateServerSession")
	procHttpCloseServerSession      = modhttpapi.NewProc("HttpCloseServerSession")
	procHttpCreateUrlGroup          = modhttpapi.NewProc("HttpCreateUrlGroup")
	procHttpCloseUrlGroup           = modhttpapi.NewProc("HttpCloseUrlGroup")
	procHttpAddUrlToUrlGroup        = modhttpapi.NewProc("HttpAddUrlToUrlGroup")
	procHttpRemoveUrlFromUrlGroup   = modhttpapi.NewProc("HttpRemoveUrlFromUrlGroup")
	procHttpSetUrlGroupProperty     = modhttpapi.NewProc("HttpSetUrlGroupProperty")
	procHttpFindUrlGroupId          = modhttpapi.NewProc("HttpFindUrlGroupId")
	procHttpCreateRequestQueue      = modhttpapi.NewProc("HttpCreateRequestQueue")
	procHttpCloseRequestQueue       = modhttpapi.NewProc("HttpCloseRequestQueue")
	procHttpSetRequestQueueProperty = modhttpapi.NewProc("HttpSetRequestQueueProperty")
	procHttpWaitForDisconnectEx     = modhttpapi.NewProc("HttpWaitForDisconnectEx")
	procHttpIsFeatureSupported      = modhttpapi.NewProc("HttpIsFeatureSupported")
)

// systemNative calls httpapi.dll.
type systemNative struct{}

func newSystemNative() Native { return systemNative{} }

// Native layouts from http.h.
type httpBindingInfo struct {
	Flags              uint32
	RequestQueueHandle uintptr
}

type httpConnectionLimitInfo struct {
	Flags          uint32
	MaxConnections uint32
}

type httpQosSettingInfo struct {
	QosType    uint32
	QosSetting unsafe.Pointer
}

// versionArg packs HTTPAPI_VERSION, which is passed by value.
func versionArg(v APIVersion) uintptr {
	return uintptr(uint32(v.Major) | uint32(v.Minor)<<16)
}

// available reports whether proc resolved. Calling an unresolved LazyProc
// panics.
func available(proc *windows.LazyProc) bool {
	return proc.Find() == nil
}

// marshalProperty converts a typed payload to its native layout. The returned
// value must be kept alive until the call returns.
func marshalProperty(info PropertyInfo) (unsafe.Pointer, uint32, any, error) {
	switch v := info.(type) {
	case BindingInfo:
		n := &httpBindingInfo{Flags: v.Flags, RequestQueueHandle: v.QueueHandle}
		return unsafe.Pointer(n), uint32(unsafe.Sizeof(*n)), n, nil
	case DelegationInfo:
		n := &httpBindingInfo{Flags: v.Flags, RequestQueueHandle: v.QueueHandle}
		return unsafe.Pointer(n), uint32(unsafe.Sizeof(*n)), n, nil
	case QosConnectionLimit:
		limit := &httpConnectionLimitInfo{Flags: v.Flags, MaxConnections: v.MaxConnections}
		n := &httpQosSettingInfo{QosType: qosConnectionLimitType, QosSetting: unsafe.Pointer(limit)}
		return unsafe.Pointer(n), uint32(unsafe.Sizeof(*n)), [2]any{n, limit}, nil
	case QueueLengthLimit:
		n := new(uint32)
		*n = uint32(v)
		return unsafe.Pointer(n), uint32(unsafe.Sizeof(*n)), n, nil
	case RejectionVerbosity:
		n := new(uint32)
		*n = uint32(v)
		return unsafe.Pointer(n), uint32(unsafe.Sizeof(*n)), n, nil
	default:
		return nil, 0, nil, fmt.Errorf("httpsys: unsupported property payload %T", info)
	}
}

func (systemNative) Initialize(version APIVersion, flags uint32) uint32 {
	if !available(procHttpInitialize) {
		return ErrorNotSupported
	}
	r, _, _ := procHttpInitialize.Call(versionArg(version), uintptr(flags), 0)
	return uint32(r)
}

func (systemNative) CreateServerSession(version APIVersion) (uint64, uint32) {
	if !available(procHttpCreateServerSession) {
		return 0, ErrorNotSupported
	}
	var id uint64
	r, _, _ := procHttpCreateServerSession.Call(versionArg(version), uintptr(unsafe.Pointer(&id)), 0)
	return id, uint32(r)
}

func (systemNative) CloseServerSession(id uint64) uint32 {
	if !available(procHttpCloseServerSession) {
		return ErrorNotSupported
	}
	r, _, _ := procHttpCloseServerSession.Call(uintptr(id))
	return uint32(r)
}

func (systemNative) CreateURLGroup(sessionID uint64) (uint64, uint32) {
	if !available(procHttpCreateUrlGroup) {
		return 0, ErrorNotSupported
	}
	var id uint64
	r, _, _ := procHttpCreateUrlGroup.Call(uintptr(sessionID), uintptr(unsafe.Pointer(&id)), 0)
	return id, uint32(r)
}

func (systemNative) CloseURLGroup(id uint64) uint32 {
	if !available(procHttpCloseUrlGroup) {
		return ErrorNotSupported
	}
	r, _, _ := procHttpCloseUrlGroup.Call(uintptr(id))
	return uint32(r)
}

func (systemNative) AddURLToURLGroup(groupID uint64, prefix string, context uint64) uint32 {
	if !available(procHttpAddUrlToUrlGroup) {
		return ErrorNotSupported
	}
	p, err := windows.UTF16PtrFromString(prefix)
	if err != nil {
		return ErrorInvalidParameter
	}
	r, _, _ := procHttpAddUrlToUrlGroup.Call(uintptr(groupID), uintptr(unsafe.Pointer(p)), uintptr(context), 0)
	return uint32(r)
}

func (systemNative) RemoveURLFromURLGroup(groupID uint64, prefix string) uint32 {
	if !available(procHttpRemoveUrlFromUrlGroup) {
		return ErrorNotSupported
	}
	p, err := windows.UTF16PtrFromString(prefix)
	if err != nil {
		return ErrorInvalidParameter
	}
	r, _, _ := procHttpRemoveUrlFromUrlGroup.Call(uintptr(groupID), uintptr(unsafe.Pointer(p)), 0)
	return uint32(r)
}

func (systemNative) SetURLGroupProperty(groupID uint64, info PropertyInfo) uint32 {
	if !available(procHttpSetUrlGroupProperty) {
		return ErrorNotSupported
	}
	ptr, size, keep, err := marshalProperty(info)
	if err != nil {
		return ErrorInvalidParameter
	}
	r, _, _ := procHttpSetUrlGroupProperty.Call(uintptr(groupID), uintptr(info.Property()), uintptr(ptr), uintptr(size))
	runtime.KeepAlive(keep)
	return uint32(r)
}

func (systemNative) FindURLGroupID(prefix string, queue uintptr) (uint64, uint32) {
	if !available(procHttpFindUrlGroupId) {
		return 0, ErrorNotSupported
	}
	p, err := windows.UTF16PtrFromString(prefix)
	if err != nil {
		return 0, ErrorInvalidParameter
	}
	var id uint64
	r, _, _ := procHttpFindUrlGroupId.Call(uintptr(unsafe.Pointer(p)), queue, uintptr(unsafe.Pointer(&id)))
	return id, uint32(r)
}

func (systemNative) CreateRequestQueue(version APIVersion, name string, flags uint32) (uintptr, uint32) {
	if !available(procHttpCreateRequestQueue) {
		return 0, ErrorNotSupported
	}
	var namePtr *uint16
	if name != "" {
		p, err := windows.UTF16PtrFromString(name)
		if err != nil {
			return 0, ErrorInvalidName
		}
		namePtr = p
	}
	var handle windows.Handle
	r, _, _ := procHttpCreateRequestQueue.Call(
		versionArg(version),
		uintptr(unsafe.Pointer(namePtr)),
		0,
		uintptr(flags),
		uintptr(unsafe.Pointer(&handle)))
	return uintptr(handle), uint32(r)
}

func (systemNative) CloseRequestQueue(queue uintptr) uint32 {
	if !available(procHttpCloseRequestQueue) {
		return ErrorNotSupported
	}
	r, _, _ := procHttpCloseRequestQueue.Call(queue)
	return uint32(r)
}

func (systemNative) SetRequestQueueProperty(queue uintptr, info PropertyInfo) uint32 {
	if !available(procHttpSetRequestQueueProperty) {
		return ErrorNotSupported
	}
	ptr, size, keep, err := marshalProperty(info)
	if err != nil {
		return ErrorInvalidParameter
	}
	r, _, _ := procHttpSetRequestQueueProperty.Call(queue, uintptr(info.Property()), uintptr(ptr), uintptr(size), 0, 0)
	runtime.KeepAlive(keep)
	return uint32(r)
}

func (systemNative) SetFileCompletionNotificationModes(queue uintptr, modes uint8) error {
	return windows.SetFileCompletionNotificationModes(windows.Handle(queue), modes)
}

func (systemNative) WaitForDisconnect(queue uintptr, connectionID uint64, ov *Overlapped) (uint32, error) {
	if err := procHttpWaitForDisconnectEx.Find(); err != nil {
		return 0, fmt.Errorf("%w: HttpWaitForDisconnectEx: %v", ErrEntryPointNotFound, err)
	}
	r, _, _ := procHttpWaitForDisconnectEx.Call(queue, uintptr(connectionID), 0, uintptr(unsafe.Pointer(ov.raw())))
	return uint32(r), nil
}

func (systemNative) BindCompletionPort(handle uintptr) (CompletionPort, error) {
	port, err := windows.CreateIoCompletionPort(windows.Handle(handle), 0, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("CreateIoCompletionPort: %w", err)
	}
	return &iocpPort{handle: port}, nil
}

func (systemNative) IsFeatureSupported(feature FeatureID) (bool, error) {
	if err := procHttpIsFeatureSupported.Find(); err != nil {
		return false, fmt.Errorf("%w: HttpIsFeatureSupported: %v", ErrEntryPointNotFound, err)
	}
	r, _, _ := procHttpIsFeatureSupported.Call(uintptr(feature))
	return r != 0, nil
}

func (systemNative) HasEntryPoint(name string) bool {
	lib, err := loadSystemLibrary(httpapiDLL)
	if err != nil {
		return false
	}
	defer func() { _ = lib.Close() }()

	_, err = windows.GetProcAddress(windows.Handle(lib.Value()), name)
	return err == nil
}

// loadSystemLibrary loads a module from System32 only.
func loadSystemLibrary(name string) (*LibraryHandle, error) {
	h, err := windows.LoadLibraryEx(name, 0, windows.LOAD_LIBRARY_SEARCH_SYSTEM32)
	if err != nil {
		return nil, fmt.Errorf("LoadLibraryEx %s: %w", name, err)
	}
	return NewLibraryHandle(uintptr(h), func(v uintptr) error {
		return windows.FreeLibrary(windows.Handle(v))
	}), nil
}

// iocpPort is a Windows I/O completion port.
type iocpPort struct {
	handle windows.Handle
	closed atomic.Bool
}

func (p *iocpPort) Dequeue() (Completion, bool) {
	var (
		bytes uint32
		key   uintptr
		ov    *windows.Overlapped
	)
	err := windows.GetQueuedCompletionStatus(p.handle, &bytes, &key, &ov, windows.INFINITE)
	if ov == nil {
		// Port closed (ERROR_ABANDONED_WAIT_0) or a wake packet.
		return Completion{}, false
	}

	status := ErrorSuccess
	if err != nil {
		var errno windows.Errno
		if errors.As(err, &errno) {
			status = uint32(errno)
		} else {
			status = ErrorOperationAborted
		}
	}
	return Completion{Overlapped: overlappedFromRaw(ov), Status: status, Bytes: bytes}, true
}

func (p *iocpPort) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	return windows.CloseHandle(p.handle)
}
