package modeling

import (
	"fmt"
	"strconv"
	"strings"

	ort "github.com/yalue/onnxruntime_go"
)

const (
	deviceCPU  = "cpu"
	deviceCUDA = "cuda"
)

// CUDADeviceID parses a device string. "cpu" and the empty string yield -1;
// "cuda" yields device 0 and "cuda:N" yields device N.
func CUDADeviceID(device string) (int, error) {
	switch {
	case device == "" || device == deviceCPU:
		return -1, nil
	case device == deviceCUDA:
		return 0, nil
	case strings.HasPrefix(device, deviceCUDA+":"):
		id, err := strconv.Atoi(strings.TrimPrefix(device, deviceCUDA+":"))
		if err != nil || id < 0 {
			return 0, fmt.Errorf("invalid cuda device %q", device)
		}
		return id, nil
	default:
		return 0, fmt.Errorf("unsupported device %q", device)
	}
}

// SessionOptionsForDevice translates a device string into onnxruntime session
// options. CPU needs none and yields nil; cuda devices get the CUDA execution
// provider bound to the parsed device id. The caller owns the returned
// options and must destroy them after session creation.
func SessionOptionsForDevice(device string) (*ort.SessionOptions, error) {
	id, err := CUDADeviceID(device)
	if err != nil {
		return nil, err
	}
	if id < 0 {
		return nil, nil
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, err
	}

	cudaOptions, err := ort.NewCUDAProviderOptions()
	if err != nil {
		options.Destroy()
		return nil, err
	}

	if err := cudaOptions.Update(map[string]string{
		"device_id": strconv.Itoa(id),
	}); err != nil {
		cudaOptions.Destroy()
		options.Destroy()
		return nil, err
	}

	if err := options.AppendExecutionProviderCUDA(cudaOptions); err != nil {
		cudaOptions.Destroy()
		options.Destroy()
		return nil, err
	}

	if err := cudaOptions.Destroy(); err != nil {
		options.Destroy()
		return nil, err
	}

	return options, nil
}
