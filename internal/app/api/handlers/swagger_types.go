package handlers

import (
	"github.com/fatflowers/pointsledger/internal/app/service/points"
	"github.com/fatflowers/pointsledger/internal/app/service/statistics"
	"github.com/fatflowers/pointsledger/pkg/response"
)

// RespOK is a generic OK envelope for endpoints returning no specific data.
type RespOK struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    interface{}              `json:"data"`
}

// RespPointsOverview wraps PointsOverview in the standard envelope.
type RespPointsOverview struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    PointsOverview           `json:"data"`
}

// RespDownload wraps DownloadResponse in the standard envelope.
type RespDownload struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    DownloadResponse         `json:"data"`
}

// RespAdjustPoints wraps AdjustPointsResponse in the standard envelope.
type RespAdjustPoints struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    AdjustPointsResponse     `json:"data"`
}

// RespRefundPoints wraps RefundPointsResponse in the standard envelope.
type RespRefundPoints struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    RefundPointsResponse     `json:"data"`
}

// RespScanHistory wraps points.ScanHistoryResponse in the standard envelope.
type RespScanHistory struct {
	Code    response.APIResponseCode   `json:"code"`
	Message string                     `json:"message"`
	Data    points.ScanHistoryResponse `json:"data"`
}

// RespReconcile wraps points.Reconciliation in the standard envelope.
type RespReconcile struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    points.Reconciliation    `json:"data"`
}

// RespPointsStatistic wraps PointsStatisticResponse in the standard envelope.
type RespPointsStatistic struct {
	Code    response.APIResponseCode           `json:"code"`
	Message string                             `json:"message"`
	Data    statistics.PointsStatisticResponse `json:"data"`
}

// RespCronRollover wraps CronRolloverResponse in the standard envelope.
type RespCronRollover struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    CronRolloverResponse     `json:"data"`
}

// RespCronExpire wraps CronExpireResponse in the standard envelope.
type RespCronExpire struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    CronExpireResponse       `json:"data"`
}
