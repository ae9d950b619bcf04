package astro

import "math"

// arcsecondsPerRadian divided by 1000 folds the micron-to-millimeter
// conversion into the classic pixel scale constant.
const pixelScaleFactor = 206.265

// PixelScale returns the image scale in arcseconds per pixel for a focal
// length in millimeters and a square photosite size in microns.
func PixelScale(focalLengthMM, pixelSizeUM float64) float64 {
	return pixelSizeUM / focalLengthMM * pixelScaleFactor
}

// FieldOfView returns the true field in degrees for a sensor of the given
// dimensions in millimeters behind the given focal length.
func FieldOfView(focalLengthMM, sensorWMM, sensorHMM float64) (widthDeg, heightDeg float64) {
	widthDeg = 2 * radToDeg * math.Atan(sensorWMM/2/focalLengthMM)
	heightDeg = 2 * radToDeg * math.Atan(sensorHMM/2/focalLengthMM)
	return widthDeg, heightDeg
}

// SensorPixels returns the pixel counts implied by the sensor dimensions in
// millimeters and the photosite size in microns.
func SensorPixels(sensorWMM, sensorHMM, pixelSizeUM float64) (width, height int) {
	width = int(sensorWMM * 1000 / pixelSizeUM)
	height = int(sensorHMM * 1000 / pixelSizeUM)
	return width, height
}

// SensorFOVArcmin returns the sensor footprint on the sky in arcminutes,
// pixel scale times pixel count.
func SensorFOVArcmin(focalLengthMM, sensorWMM, sensorHMM, pixelSizeUM float64) (widthAmin, heightAmin float64) {
	scale := PixelScale(focalLengthMM, pixelSizeUM)
	wPx, hPx := SensorPixels(sensorWMM, sensorHMM, pixelSizeUM)
	return scale * float64(wPx) / 60.0, scale * float64(hPx) / 60.0
}

// SensorCoverage estimates how much of the frame a target fills: its major
// axis in arcminutes against the average sensor dimension, as a rounded
// percentage. The sensor is assumed rotatable, so the two axes are averaged
// rather than matched. Values over 100 mean the target overflows the frame.
// Returns 0 when any dimension is unknown.
func SensorCoverage(majAxisAmin, sensorWAmin, sensorHAmin float64) int {
	if majAxisAmin <= 0 || sensorWAmin <= 0 || sensorHAmin <= 0 {
		return 0
	}
	avg := (sensorWAmin + sensorHAmin) / 2.0
	return int(math.Round(100 * majAxisAmin / avg))
}
