package httpsys

import (
	"errors"
	"sync"
)

// API is an initialized HTTP Server API with its detected capabilities.
// Initialization happens once, when the API is constructed.
type API struct {
	native  Native
	version APIVersion

	supported          bool
	initStatus         uint32
	supportsTrailers   bool
	supportsDelegation bool
	supportsReset      bool
}

// Features is a snapshot of the detected capabilities.
type Features struct {
	Version            string `json:"version" yaml:"version"`
	Supported          bool   `json:"supported" yaml:"supported"`
	InitStatus         string `json:"init_status" yaml:"init_status"`
	SupportsTrailers   bool   `json:"supports_trailers" yaml:"supports_trailers"`
	SupportsDelegation bool   `json:"supports_delegation" yaml:"supports_delegation"`
	SupportsReset      bool   `json:"supports_reset" yaml:"supports_reset"`
}

// setRequestPropertyEntryPoint is only exported by httpapi.dll on systems
// that can reset requests.
const setRequestPropertyEntryPoint = "HttpSetRequestProperty"

// NewAPI initializes native as an HTTP server (API 2.0) and probes optional
// features. A missing entry point or feature reads as unsupported.
func NewAPI(native Native) *API {
	a := &API{native: native, version: Version2}

	a.initStatus = native.Initialize(a.version, InitializeServer)
	a.supported = a.initStatus == ErrorSuccess

	a.supportsTrailers = featureSupported(native, FeatureResponseTrailers)
	a.supportsDelegation = featureSupported(native, FeatureDelegateEx)
	a.supportsReset = native.HasEntryPoint(setRequestPropertyEntryPoint)

	return a
}

func featureSupported(native Native, feature FeatureID) bool {
	ok, err := native.IsFeatureSupported(feature)
	if err != nil {
		if !errors.Is(err, ErrEntryPointNotFound) {
			componentLogger("httpapi").Debug("Feature probe failed", "feature", uint32(feature), "error", err)
		}
		return false
	}
	return ok
}

var (
	defaultAPI     *API
	defaultAPIOnce sync.Once
)

// Default returns the process-wide API backed by the platform's httpapi.dll.
// The native initialize call runs at most once per process.
func Default() *API {
	defaultAPIOnce.Do(func() {
		defaultAPI = NewAPI(newSystemNative())
	})
	return defaultAPI
}

// Native returns the call surface this API was built on.
func (a *API) Native() Native { return a.native }

// Version returns the negotiated API version.
func (a *API) Version() APIVersion { return a.version }

// Supported reports whether HttpInitialize succeeded.
func (a *API) Supported() bool { return a.supported }

// SupportsTrailers reports response trailer support.
func (a *API) SupportsTrailers() bool { return a.supportsTrailers }

// SupportsDelegation reports request delegation support.
func (a *API) SupportsDelegation() bool { return a.supportsDelegation }

// SupportsReset reports whether requests can be reset.
func (a *API) SupportsReset() bool { return a.supportsReset }

// Features returns a snapshot of the detected capabilities.
func (a *API) Features() Features {
	return Features{
		Version:            a.version.String(),
		Supported:          a.supported,
		InitStatus:         StatusText(a.initStatus),
		SupportsTrailers:   a.supportsTrailers,
		SupportsDelegation: a.supportsDelegation,
		SupportsReset:      a.supportsReset,
	}
}

func (a *API) ensureSupported() error {
	if !a.supported {
		return ErrNotSupported
	}
	return nil
}
