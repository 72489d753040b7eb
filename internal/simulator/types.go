package simulator

import (
	"fmt"

	"github.com/xitongsys/parquet-go/schema"
)

// Stream topics carried by every OutputDestination.
const (
	TopicArrivals     = "customer_arrivals"
	TopicDecisions    = "decision_events"
	TopicExposure     = "review_exposure"
	TopicDaySummaries = "daily_summaries"
)

// ArrivalStreamEvent is emitted once per generated customer.
type ArrivalStreamEvent struct {
	Timestamp   int64  `json:"timestamp" parquet:"name=timestamp,type=INT64"`
	Day         int32  `json:"day" parquet:"name=day,type=INT32"`
	CustomerID  string `json:"customerId" parquet:"name=customerId,type=BYTE_ARRAY,convertedtype=UTF8"`
	Name        string `json:"name" parquet:"name=name,type=BYTE_ARRAY,convertedtype=UTF8"`
	Income      string `json:"income" parquet:"name=income,type=BYTE_ARRAY,convertedtype=UTF8"`
	Taste       string `json:"taste" parquet:"name=taste,type=BYTE_ARRAY,convertedtype=UTF8"`
	Personality string `json:"personality" parquet:"name=personality,type=BYTE_ARRAY,convertedtype=UTF8"`
	Fallback    bool   `json:"fallback" parquet:"name=fallback,type=BOOLEAN"`
}

// DecisionStreamEvent is emitted once per customer decision.
type DecisionStreamEvent struct {
	Timestamp    int64   `json:"timestamp" parquet:"name=timestamp,type=INT64"`
	Day          int32   `json:"day" parquet:"name=day,type=INT32"`
	CustomerID   string  `json:"customerId" parquet:"name=customerId,type=BYTE_ARRAY,convertedtype=UTF8"`
	Outcome      string  `json:"outcome" parquet:"name=outcome,type=BYTE_ARRAY,convertedtype=UTF8"`
	RestaurantID string  `json:"restaurantId" parquet:"name=restaurantId,type=BYTE_ARRAY,convertedtype=UTF8"`
	Item         string  `json:"item" parquet:"name=item,type=BYTE_ARRAY,convertedtype=UTF8"`
	Price        float64 `json:"price" parquet:"name=price,type=DOUBLE"`
	Reason       string  `json:"reason" parquet:"name=reason,type=BYTE_ARRAY,convertedtype=UTF8"`
}

// ExposureStreamEvent is emitted once per customer per restaurant.
type ExposureStreamEvent struct {
	Timestamp    int64  `json:"timestamp" parquet:"name=timestamp,type=INT64"`
	Day          int32  `json:"day" parquet:"name=day,type=INT32"`
	CustomerID   string `json:"customerId" parquet:"name=customerId,type=BYTE_ARRAY,convertedtype=UTF8"`
	RestaurantID string `json:"restaurantId" parquet:"name=restaurantId,type=BYTE_ARRAY,convertedtype=UTF8"`
	ReviewCount  int32  `json:"reviewCount" parquet:"name=reviewCount,type=INT32"`
	InitialCount int32  `json:"initialCount" parquet:"name=initialCount,type=INT32"`
	Biased       bool   `json:"biased" parquet:"name=biased,type=BOOLEAN"`
	BiasReason   string `json:"biasReason" parquet:"name=biasReason,type=BYTE_ARRAY,convertedtype=UTF8"`
}

// DaySummaryStreamEvent is emitted once per restaurant per day.
type DaySummaryStreamEvent struct {
	Timestamp    int64   `json:"timestamp" parquet:"name=timestamp,type=INT64"`
	Day          int32   `json:"day" parquet:"name=day,type=INT32"`
	RestaurantID string  `json:"restaurantId" parquet:"name=restaurantId,type=BYTE_ARRAY,convertedtype=UTF8"`
	Rating       float64 `json:"rating" parquet:"name=rating,type=DOUBLE"`
	Visits       int32   `json:"visits" parquet:"name=visits,type=INT32"`
	Revenue      float64 `json:"revenue" parquet:"name=revenue,type=DOUBLE"`
	ReviewCount  int32   `json:"reviewCount" parquet:"name=reviewCount,type=INT32"`
}

func GetSchema(topic string) (*schema.SchemaHandler, error) {
	var sh *schema.SchemaHandler
	var err error

	switch topic {
	case TopicArrivals:
		sh, err = schema.NewSchemaHandlerFromStruct(new(ArrivalStreamEvent))
	case TopicDecisions:
		sh, err = schema.NewSchemaHandlerFromStruct(new(DecisionStreamEvent))
	case TopicExposure:
		sh, err = schema.NewSchemaHandlerFromStruct(new(ExposureStreamEvent))
	case TopicDaySummaries:
		sh, err = schema.NewSchemaHandlerFromStruct(new(DaySummaryStreamEvent))
	default:
		return nil, fmt.Errorf("unknown topic: %s", topic)
	}

	if err != nil {
		return nil, fmt.Errorf("error creating schema for %s: %w", topic, err)
	}
	return sh, nil
}
