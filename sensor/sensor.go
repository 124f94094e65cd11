// Package sensor defines the boundary between the Netrajaal communication
// core and the out-of-scope person-detection/image-capture collaborators
// (spec.md §1 explicitly excludes inference; the original prototype's
// detect_person/person_detection_loop called into OpenCV directly). The
// driver-registration idiom is grounded on core/gpio_hal.go's
// SetGPIODriver/MustGPIO pair: a package-level variable set once at boot,
// with a Must* accessor that panics if nothing was ever wired in. The core
// never imports a concrete camera or ML library; an upper layer wires one
// in here, and the core only reaches for it when it chooses to ship a
// detection event through the chunked transfer engine.
package sensor

// Detector finds a person in a captured frame and reports a confidence
// score in [0,1].
type Detector interface {
	Detect(frame []byte) (found bool, confidence float64, err error)
}

// ImageStore persists a captured frame under a name, for later retrieval
// or upload.
type ImageStore interface {
	Save(name string, data []byte) error
}

var (
	detector   Detector
	imageStore ImageStore
)

// SetDetector registers the Detector implementation an upper layer wants
// the node to use.
func SetDetector(d Detector) {
	detector = d
}

// SetImageStore registers the ImageStore implementation an upper layer
// wants the node to use.
func SetImageStore(s ImageStore) {
	imageStore = s
}

// MustDetector returns the registered Detector or panics if none was ever
// configured.
func MustDetector() Detector {
	if detector == nil {
		panic("sensor: no Detector configured")
	}
	return detector
}

// MustImageStore returns the registered ImageStore or panics if none was
// ever configured.
func MustImageStore() ImageStore {
	if imageStore == nil {
		panic("sensor: no ImageStore configured")
	}
	return imageStore
}

// HasDetector reports whether a Detector has been registered, so callers
// can skip detection entirely on nodes without a camera instead of always
// panicking through MustDetector.
func HasDetector() bool {
	return detector != nil
}

// HasImageStore reports whether an ImageStore has been registered, so
// callers can skip saving entirely on nodes with nowhere to store images.
func HasImageStore() bool {
	return imageStore != nil
}
