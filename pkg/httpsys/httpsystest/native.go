// Package httpsystest provides an in-memory HTTP Server API for tests.
//
// Native simulates the parts of the kernel the httpsys package talks to:
// named request queues shared between handles, url groups with their
// prefixes and queue bindings, server sessions, and disconnect waits that
// complete through a per-handle completion port when Disconnect is called.
// Every call is counted and appended to an ordered call log.
package httpsystest

import (
	"strings"
	"sync"

	"github.com/marmos91/httpsys/pkg/httpsys"
)

var _ httpsys.Native = (*Native)(nil)

// PropertyCall records one Set*Property call.
type PropertyCall struct {
	// Target is "url_group" or "request_queue".
	Target string
	ID     uint64
	Info   httpsys.PropertyInfo
}

type queue struct {
	name    string
	handles int
	flags   uint32
}

type urlGroup struct {
	session  uint64
	queue    *queue
	prefixes map[string]uint64
}

type wait struct {
	handle uintptr
	ov     *httpsys.Overlapped
}

// Native is a fake httpsys.Native. The zero value is not usable; call New.
type Native struct {
	mu sync.Mutex

	initStatus  uint32
	features    map[httpsys.FeatureID]bool
	featureErr  error
	entryPoints map[string]bool

	nextID     uint64
	nextHandle uintptr

	sessions map[uint64]struct{}
	groups   map[uint64]*urlGroup
	prefixes map[string]uint64 // lowercased prefix -> group id
	queues   map[string]*queue // named queues
	handles  map[uintptr]*queue
	modes    map[uintptr]uint8
	ports    map[uintptr]*Port

	waitStatus uint32
	waits      map[uint64][]wait

	failStatus map[string]uint32
	failErr    map[string]error

	calls      map[string]int
	callLog    []string
	properties []PropertyCall
}

// New returns a fake where initialization succeeds, delegation and trailers
// are supported, and HttpSetRequestProperty is exported.
func New() *Native {
	return &Native{
		initStatus: httpsys.ErrorSuccess,
		features: map[httpsys.FeatureID]bool{
			httpsys.FeatureResponseTrailers: true,
			httpsys.FeatureDelegateEx:       true,
		},
		entryPoints: map[string]bool{"HttpSetRequestProperty": true},
		nextID:      0xFF00000000000000,
		nextHandle:  0x100,
		sessions:    make(map[uint64]struct{}),
		groups:      make(map[uint64]*urlGroup),
		prefixes:    make(map[string]uint64),
		queues:      make(map[string]*queue),
		handles:     make(map[uintptr]*queue),
		modes:       make(map[uintptr]uint8),
		ports:       make(map[uintptr]*Port),
		waitStatus:  httpsys.ErrorIOPending,
		waits:       make(map[uint64][]wait),
		failStatus:  make(map[string]uint32),
		failErr:     make(map[string]error),
		calls:       make(map[string]int),
	}
}

// NewAPI is shorthand for httpsys.NewAPI(New()).
func NewAPI() (*httpsys.API, *Native) {
	n := New()
	return httpsys.NewAPI(n), n
}

// ============================================================================
// Test controls
// ============================================================================

// SetInitializeStatus sets the status Initialize returns.
func (n *Native) SetInitializeStatus(status uint32) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.initStatus = status
}

// SetFeature sets the result of IsFeatureSupported for feature.
func (n *Native) SetFeature(feature httpsys.FeatureID, supported bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.features[feature] = supported
}

// SetFeatureError makes IsFeatureSupported fail with err, as when the entry
// point is missing. nil restores normal behavior.
func (n *Native) SetFeatureError(err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.featureErr = err
}

// SetEntryPoint sets whether HasEntryPoint(name) reports true.
func (n *Native) SetEntryPoint(name string, present bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.entryPoints[name] = present
}

// Fail makes every later call named call return status. Zero clears it.
// Call names are the Native method names, for example "AddURLToURLGroup".
func (n *Native) Fail(call string, status uint32) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if status == httpsys.ErrorSuccess {
		delete(n.failStatus, call)
		return
	}
	n.failStatus[call] = status
}

// FailWithError makes every later error-returning call named call fail with
// err. nil clears it.
func (n *Native) FailWithError(call string, err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if err == nil {
		delete(n.failErr, call)
		return
	}
	n.failErr[call] = err
}

// SetWaitStatus sets the status WaitForDisconnect returns after recording
// the wait. The default is ERROR_IO_PENDING.
func (n *Native) SetWaitStatus(status uint32) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.waitStatus = status
}

// Disconnect completes every pending wait for connectionID through the
// completion port of the queue handle it was issued on. It returns the
// number of completions posted.
func (n *Native) Disconnect(connectionID uint64) int {
	n.mu.Lock()
	pending := n.waits[connectionID]
	delete(n.waits, connectionID)
	targets := make([]*Port, 0, len(pending))
	for _, w := range pending {
		targets = append(targets, n.ports[w.handle])
	}
	n.mu.Unlock()

	posted := 0
	for i, w := range pending {
		if targets[i] == nil {
			continue
		}
		if targets[i].Post(httpsys.Completion{Overlapped: w.ov, Status: httpsys.ErrorSuccess}) {
			posted++
		}
	}
	return posted
}

// Port returns the completion port bound to handle, or nil.
func (n *Native) Port(handle uintptr) *Port {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.ports[handle]
}

// PendingWaits returns the number of outstanding disconnect waits.
func (n *Native) PendingWaits() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	total := 0
	for _, ws := range n.waits {
		total += len(ws)
	}
	return total
}

// Calls returns how many times call was made.
func (n *Native) Calls(call string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.calls[call]
}

// CallLog returns every call name in the order the calls were made.
func (n *Native) CallLog() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.callLog...)
}

// ResetCalls clears the counters and the call log.
func (n *Native) ResetCalls() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = make(map[string]int)
	n.callLog = nil
	n.properties = nil
}

// Properties returns every property set so far.
func (n *Native) Properties() []PropertyCall {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]PropertyCall(nil), n.properties...)
}

// QueueExists reports whether a named queue is open on any handle.
func (n *Native) QueueExists(name string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	_, ok := n.queues[name]
	return ok
}

// HandleOpen reports whether a request queue handle is open.
func (n *Native) HandleOpen(handle uintptr) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	_, ok := n.handles[handle]
	return ok
}

// CompletionModes returns the notification modes set on handle.
func (n *Native) CompletionModes(handle uintptr) uint8 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.modes[handle]
}

// GroupPrefixes returns the prefixes registered on a url group.
func (n *Native) GroupPrefixes(groupID uint64) []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	g, ok := n.groups[groupID]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(g.prefixes))
	for p := range g.prefixes {
		out = append(out, p)
	}
	return out
}

// GroupBound reports whether a url group is bound to a request queue.
func (n *Native) GroupBound(groupID uint64) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	g, ok := n.groups[groupID]
	return ok && g.queue != nil
}

// GroupExists reports whether a url group id is open.
func (n *Native) GroupExists(groupID uint64) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	_, ok := n.groups[groupID]
	return ok
}

// enter records call and returns its injected status. Callers hold n.mu.
func (n *Native) enter(call string) uint32 {
	n.calls[call]++
	n.callLog = append(n.callLog, call)
	return n.failStatus[call]
}

func (n *Native) id() uint64 {
	n.nextID++
	return n.nextID
}

// ============================================================================
// httpsys.Native
// ============================================================================

func (n *Native) Initialize(version httpsys.APIVersion, flags uint32) uint32 {
	n.mu.Lock()
	defer n.mu.Unlock()
	if status := n.enter("Initialize"); status != 0 {
		return status
	}
	return n.initStatus
}

func (n *Native) CreateServerSession(version httpsys.APIVersion) (uint64, uint32) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if status := n.enter("CreateServerSession"); status != 0 {
		return 0, status
	}
	id := n.id()
	n.sessions[id] = struct{}{}
	return id, httpsys.ErrorSuccess
}

func (n *Native) CloseServerSession(id uint64) uint32 {
	n.mu.Lock()
	defer n.mu.Unlock()
	if status := n.enter("CloseServerSession"); status != 0 {
		return status
	}
	if _, ok := n.sessions[id]; !ok {
		return httpsys.ErrorInvalidParameter
	}
	delete(n.sessions, id)
	for gid, g := range n.groups {
		if g.session == id {
			n.dropGroup(gid)
		}
	}
	return httpsys.ErrorSuccess
}

func (n *Native) CreateURLGroup(sessionID uint64) (uint64, uint32) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if status := n.enter("CreateURLGroup"); status != 0 {
		return 0, status
	}
	if _, ok := n.sessions[sessionID]; !ok {
		return 0, httpsys.ErrorInvalidParameter
	}
	id := n.id()
	n.groups[id] = &urlGroup{session: sessionID, prefixes: make(map[string]uint64)}
	return id, httpsys.ErrorSuccess
}

func (n *Native) CloseURLGroup(id uint64) uint32 {
	n.mu.Lock()
	defer n.mu.Unlock()
	if status := n.enter("CloseURLGroup"); status != 0 {
		return status
	}
	if _, ok := n.groups[id]; !ok {
		return httpsys.ErrorInvalidParameter
	}
	n.dropGroup(id)
	return httpsys.ErrorSuccess
}

func (n *Native) dropGroup(id uint64) {
	g := n.groups[id]
	for p := range g.prefixes {
		delete(n.prefixes, strings.ToLower(p))
	}
	delete(n.groups, id)
}

func (n *Native) AddURLToURLGroup(groupID uint64, prefix string, context uint64) uint32 {
	n.mu.Lock()
	defer n.mu.Unlock()
	if status := n.enter("AddURLToURLGroup"); status != 0 {
		return status
	}
	g, ok := n.groups[groupID]
	if !ok {
		return httpsys.ErrorInvalidParameter
	}
	key := strings.ToLower(prefix)
	if _, taken := n.prefixes[key]; taken {
		return httpsys.ErrorAlreadyExists
	}
	n.prefixes[key] = groupID
	g.prefixes[prefix] = context
	return httpsys.ErrorSuccess
}

func (n *Native) RemoveURLFromURLGroup(groupID uint64, prefix string) uint32 {
	n.mu.Lock()
	defer n.mu.Unlock()
	if status := n.enter("RemoveURLFromURLGroup"); status != 0 {
		return status
	}
	g, ok := n.groups[groupID]
	if !ok {
		return httpsys.ErrorInvalidParameter
	}
	if _, ok := g.prefixes[prefix]; !ok {
		return httpsys.ErrorFileNotFound
	}
	delete(g.prefixes, prefix)
	delete(n.prefixes, strings.ToLower(prefix))
	return httpsys.ErrorSuccess
}

func (n *Native) SetURLGroupProperty(groupID uint64, info httpsys.PropertyInfo) uint32 {
	n.mu.Lock()
	defer n.mu.Unlock()
	if status := n.enter("SetURLGroupProperty"); status != 0 {
		return status
	}
	g, ok := n.groups[groupID]
	if !ok {
		return httpsys.ErrorInvalidParameter
	}
	n.properties = append(n.properties, PropertyCall{Target: "url_group", ID: groupID, Info: info})

	switch v := info.(type) {
	case httpsys.BindingInfo:
		if v.Flags&httpsys.PropertyFlagPresent == 0 {
			g.queue = nil
			return httpsys.ErrorSuccess
		}
		q, ok := n.handles[v.QueueHandle]
		if !ok {
			return httpsys.ErrorInvalidHandleValue
		}
		g.queue = q
	case httpsys.DelegationInfo:
		if _, ok := n.handles[v.QueueHandle]; !ok {
			return httpsys.ErrorInvalidHandleValue
		}
	}
	return httpsys.ErrorSuccess
}

func (n *Native) FindURLGroupID(prefix string, queueHandle uintptr) (uint64, uint32) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if status := n.enter("FindURLGroupID"); status != 0 {
		return 0, status
	}
	q, ok := n.handles[queueHandle]
	if !ok {
		return 0, httpsys.ErrorInvalidHandleValue
	}
	id, ok := n.prefixes[strings.ToLower(prefix)]
	if !ok || n.groups[id].queue != q {
		return 0, httpsys.ErrorNotFound
	}
	return id, httpsys.ErrorSuccess
}

func (n *Native) CreateRequestQueue(version httpsys.APIVersion, name string, flags uint32) (uintptr, uint32) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if status := n.enter("CreateRequestQueue"); status != 0 {
		return 0, status
	}
	if strings.ContainsAny(name, `/\`) {
		return 0, httpsys.ErrorInvalidName
	}

	var q *queue
	if flags&httpsys.CreateQueueFlagOpenExisting != 0 {
		if name == "" {
			return 0, httpsys.ErrorInvalidParameter
		}
		existing, ok := n.queues[name]
		if !ok {
			return 0, httpsys.ErrorFileNotFound
		}
		q = existing
	} else {
		if _, exists := n.queues[name]; exists && name != "" {
			return 0, httpsys.ErrorAlreadyExists
		}
		q = &queue{name: name, flags: flags}
		if name != "" {
			n.queues[name] = q
		}
	}

	n.nextHandle += 4
	h := n.nextHandle
	q.handles++
	n.handles[h] = q
	return h, httpsys.ErrorSuccess
}

func (n *Native) CloseRequestQueue(handle uintptr) uint32 {
	n.mu.Lock()
	defer n.mu.Unlock()
	if status := n.enter("CloseRequestQueue"); status != 0 {
		return status
	}
	q, ok := n.handles[handle]
	if !ok {
		return httpsys.ErrorInvalidHandleValue
	}
	delete(n.handles, handle)
	delete(n.modes, handle)
	for connID, ws := range n.waits {
		kept := ws[:0]
		for _, w := range ws {
			if w.handle != handle {
				kept = append(kept, w)
			}
		}
		if len(kept) == 0 {
			delete(n.waits, connID)
		} else {
			n.waits[connID] = kept
		}
	}
	q.handles--
	if q.handles == 0 && q.name != "" {
		delete(n.queues, q.name)
		for _, g := range n.groups {
			if g.queue == q {
				g.queue = nil
			}
		}
	}
	return httpsys.ErrorSuccess
}

func (n *Native) SetRequestQueueProperty(handle uintptr, info httpsys.PropertyInfo) uint32 {
	n.mu.Lock()
	defer n.mu.Unlock()
	if status := n.enter("SetRequestQueueProperty"); status != 0 {
		return status
	}
	if _, ok := n.handles[handle]; !ok {
		return httpsys.ErrorInvalidHandleValue
	}
	n.properties = append(n.properties, PropertyCall{Target: "request_queue", ID: uint64(handle), Info: info})
	return httpsys.ErrorSuccess
}

func (n *Native) SetFileCompletionNotificationModes(handle uintptr, modes uint8) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.enter("SetFileCompletionNotificationModes")
	if err := n.failErr["SetFileCompletionNotificationModes"]; err != nil {
		return err
	}
	n.modes[handle] = modes
	return nil
}

// WaitForDisconnect records a pending wait. With SetWaitStatus(ERROR_SUCCESS)
// the wait completes inline: a completion is posted right away unless the
// handle skips the completion port on success.
func (n *Native) WaitForDisconnect(handle uintptr, connectionID uint64, ov *httpsys.Overlapped) (uint32, error) {
	n.mu.Lock()
	status := n.enter("WaitForDisconnect")
	if err := n.failErr["WaitForDisconnect"]; err != nil {
		n.mu.Unlock()
		return 0, err
	}
	if status != 0 {
		n.mu.Unlock()
		return status, nil
	}
	if _, ok := n.handles[handle]; !ok {
		n.mu.Unlock()
		return httpsys.ErrorInvalidHandleValue, nil
	}

	result := n.waitStatus
	var inline *Port
	switch {
	case result == httpsys.ErrorIOPending:
		n.waits[connectionID] = append(n.waits[connectionID], wait{handle: handle, ov: ov})
	case result == httpsys.ErrorSuccess && n.modes[handle]&httpsys.SkipCompletionPortOnSuccess == 0:
		inline = n.ports[handle]
	}
	n.mu.Unlock()

	if inline != nil {
		inline.Post(httpsys.Completion{Overlapped: ov, Status: httpsys.ErrorSuccess})
	}
	return result, nil
}

func (n *Native) BindCompletionPort(handle uintptr) (httpsys.CompletionPort, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.enter("BindCompletionPort")
	if err := n.failErr["BindCompletionPort"]; err != nil {
		return nil, err
	}
	p := newPort(n)
	n.ports[handle] = p
	return p, nil
}

func (n *Native) IsFeatureSupported(feature httpsys.FeatureID) (bool, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.enter("IsFeatureSupported")
	if n.featureErr != nil {
		return false, n.featureErr
	}
	return n.features[feature], nil
}

func (n *Native) HasEntryPoint(name string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.enter("HasEntryPoint")
	return n.entryPoints[name]
}

// ============================================================================
// Completion port
// ============================================================================

// Port is the fake completion port handed out by BindCompletionPort.
type Port struct {
	native    *Native
	ch        chan httpsys.Completion
	done      chan struct{}
	closeOnce sync.Once
}

func newPort(n *Native) *Port {
	return &Port{
		native: n,
		ch:     make(chan httpsys.Completion, 1024),
		done:   make(chan struct{}),
	}
}

// Post queues a completion. It reports false once the port is closed.
func (p *Port) Post(c httpsys.Completion) bool {
	select {
	case <-p.done:
		return false
	default:
	}
	select {
	case p.ch <- c:
		return true
	case <-p.done:
		return false
	}
}

func (p *Port) Dequeue() (httpsys.Completion, bool) {
	select {
	case c := <-p.ch:
		return c, true
	case <-p.done:
		return httpsys.Completion{}, false
	}
}

func (p *Port) Close() error {
	p.closeOnce.Do(func() {
		p.native.mu.Lock()
		p.native.enter("ClosePort")
		p.native.mu.Unlock()
		close(p.done)
	})
	return nil
}
