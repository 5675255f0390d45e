package errors

func (d Definition) Error() string {
	return d.Message
}

// Definition 表示业务错误码及默认信息。
type Definition struct {
	Code    string
	Message string
}

// 通用错误。
var (
	InvalidRequest     = Definition{Code: "INVALID_REQUEST", Message: "Invalid request"}
	StorageUnavailable = Definition{Code: "STORAGE_UNAVAILABLE", Message: "Local storage unavailable"}
)

// 定位与运行环境错误。
var (
	BackgroundLocationUnsupported = Definition{Code: "BACKGROUND_LOCATION_UNSUPPORTED", Message: "Background location is not supported in this runtime"}
	LocationPermissionDenied      = Definition{Code: "LOCATION_PERMISSION_DENIED", Message: "Location permission denied"}
)

// 行程模块错误。
var (
	NetworkUnavailable = Definition{Code: "NETWORK_UNAVAILABLE", Message: "Network unavailable"}
	TripCreationFailed = Definition{Code: "TRIP_CREATION_FAILED", Message: "Trip creation failed"}
	NoActiveSession    = Definition{Code: "NO_ACTIVE_SESSION", Message: "No active trip session"}
	LaunchRateLimited  = Definition{Code: "LAUNCH_RATE_LIMITED", Message: "Trip launch requested too frequently"}
)

// 地理编码错误。
var (
	GeocoderUnavailable = Definition{Code: "GEOCODER_UNAVAILABLE", Message: "Geocoder unavailable"}
)

// Lookup 提供错误码查询能力。
var Lookup = map[string]Definition{
	InvalidRequest.Code:                InvalidRequest,
	StorageUnavailable.Code:            StorageUnavailable,
	BackgroundLocationUnsupported.Code: BackgroundLocationUnsupported,
	LocationPermissionDenied.Code:      LocationPermissionDenied,
	NetworkUnavailable.Code:            NetworkUnavailable,
	TripCreationFailed.Code:            TripCreationFailed,
	NoActiveSession.Code:               NoActiveSession,
	LaunchRateLimited.Code:             LaunchRateLimited,
	GeocoderUnavailable.Code:           GeocoderUnavailable,
}

// Get 根据错误码返回 Definition，若不存在则返回空 Definition。
func Get(code string) Definition {
	if def, ok := Lookup[code]; ok {
		return def
	}
	return Definition{Code: code, Message: "Unexpected error"}
}
