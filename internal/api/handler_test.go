package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"energy_service/internal/core"
	"energy_service/internal/domain/model"
	"energy_service/internal/domain/repository"
	"energy_service/internal/metrics"
)

type stubModel struct {
	output float64
	err    error
}

func (m *stubModel) Predict(context.Context, []float64) (float64, error) { return m.output, m.err }

func (m *stubModel) GetModelMetadata(context.Context) (*model.ModelMetadata, error) {
	return nil, errors.New("not served")
}

type stubPlaces struct {
	places []model.OSMPlace
	err    error
}

func (s *stubPlaces) GetPlaces(context.Context, float64, float64) ([]model.OSMPlace, error) {
	return s.places, s.err
}

const officeBody = `{
	"PropertyGFATotal": 50000,
	"NumberofFloors": 5,
	"YearBuilt": 1990,
	"PrimaryPropertyType": "Office",
	"Neighborhood": "DOWNTOWN",
	"Latitude": 47.6062,
	"Longitude": -122.3321,
	"PropertyGFAParking": 5000,
	"NumberofBuildings": 1,
	"ENERGYSTARScore": 75
}`

var _ = Describe("Handler", func() {
	var (
		artifacts *model.Artifacts
		mlModel   *stubModel
		places    *stubPlaces
		server    *httptest.Server
	)

	decode := func(resp *http.Response, v any) {
		defer resp.Body.Close()
		Expect(json.NewDecoder(resp.Body).Decode(v)).To(Succeed())
	}

	post := func(path, body string) *http.Response {
		resp, err := http.Post(server.URL+path, "application/json", strings.NewReader(body))
		Expect(err).NotTo(HaveOccurred())
		return resp
	}

	get := func(path string) *http.Response {
		resp, err := http.Get(server.URL + path)
		Expect(err).NotTo(HaveOccurred())
		return resp
	}

	BeforeEach(func() {
		var err error
		artifacts, err = repository.LoadArtifacts("../../artifacts")
		Expect(err).NotTo(HaveOccurred())

		pipeline, err := core.NewPipeline(artifacts)
		Expect(err).NotTo(HaveOccurred())

		mlModel = &stubModel{output: 1_000_000}
		places = &stubPlaces{}

		reg := prometheus.NewRegistry()
		service := core.NewPredictionService(pipeline, mlModel, nil, false, metrics.New(reg), zap.NewNop())
		resolver := core.NewNeighborhoodResolver(places, artifacts)
		server = httptest.NewServer(NewHandler(service, resolver, reg, zap.NewNop()).Routes())
	})

	AfterEach(func() {
		server.Close()
	})

	Describe("POST /api/predict", func() {
		It("returns the consumption in three units", func() {
			resp := post("/api/predict", officeBody)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(resp.Header.Get("Content-Type")).To(Equal("application/json"))

			var body model.PredictionResponse
			decode(resp, &body)
			Expect(body.Status).To(Equal("success"))
			Expect(body.RequestID).NotTo(BeEmpty())
			Expect(body.Prediction.KBtu).To(Equal(1_000_000.0))
			Expect(body.Prediction.KWh).To(BeNumerically("~", 293071, 1e-6))
			Expect(body.Prediction.MWh).To(BeNumerically("~", 293.071, 1e-9))
			Expect(body.BuildingInfo.HasParking).To(BeTrue())
			Expect(body.BuildingInfo.HasEnergyStar).To(BeTrue())
			Expect(body.BuildingInfo.LocationZone).To(Equal("Centre"))
			Expect(body.ModelPerformance.R2Score).To(Equal(0.677))
		})

		It("lists every invalid field", func() {
			resp := post("/api/predict", `{"PropertyGFATotal": -1, "NumberofFloors": 0}`)
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))

			var body ErrorResponse
			decode(resp, &body)
			Expect(body.Status).To(Equal("error"))
			fields := make([]string, 0, len(body.Fields))
			for _, f := range body.Fields {
				fields = append(fields, f.Field)
			}
			Expect(fields).To(ContainElements("PropertyGFATotal", "NumberofFloors", "YearBuilt", "Neighborhood"))
		})

		It("rejects malformed JSON", func() {
			resp := post("/api/predict", `{"PropertyGFATotal":`)
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
			resp.Body.Close()
		})

		It("names a field sent with the wrong JSON type", func() {
			resp := post("/api/predict", strings.Replace(officeBody, `"NumberofFloors": 5`, `"NumberofFloors": "5"`, 1))
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))

			var body ErrorResponse
			decode(resp, &body)
			Expect(body.Fields).To(HaveLen(1))
			Expect(body.Fields[0].Field).To(Equal("NumberofFloors"))
			Expect(body.Fields[0].Message).To(Equal("must be a number, got string"))
		})

		It("accepts an unseen building type", func() {
			resp := post("/api/predict", strings.Replace(officeBody, `"NumberofBuildings": 1,`, `"NumberofBuildings": 1, "BuildingType": "Multifamily LR (1-4)",`, 1))
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			resp.Body.Close()
		})

		It("rejects other methods", func() {
			resp := get("/api/predict")
			Expect(resp.StatusCode).To(Equal(http.StatusMethodNotAllowed))
			resp.Body.Close()
		})

		It("flags a negative model output", func() {
			mlModel.output = -500

			resp := post("/api/predict", officeBody)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var body model.PredictionResponse
			decode(resp, &body)
			Expect(body.Status).To(Equal("anomaly"))
			Expect(body.Prediction.KBtu).To(BeZero())
			Expect(body.Anomalies).NotTo(BeEmpty())
		})

		It("maps a model failure to 502", func() {
			mlModel.err = errors.New("connection refused")

			resp := post("/api/predict", officeBody)
			Expect(resp.StatusCode).To(Equal(http.StatusBadGateway))

			var body ErrorResponse
			decode(resp, &body)
			Expect(body.Error).To(Equal("upstream service unavailable"))
		})
	})

	Describe("GET /api/model", func() {
		It("describes the feature layout", func() {
			resp := get("/api/model")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var body model.ModelDescription
			decode(resp, &body)
			Expect(body.Name).To(Equal("energy_consumption_model"))
			Expect(body.FeatureCount).To(Equal(len(artifacts.Features.Order)))
			Expect(body.Features).To(Equal(artifacts.Features.Order))
		})
	})

	Describe("GET /api/neighborhood", func() {
		It("suggests the nearest known neighborhood", func() {
			places.places = []model.OSMPlace{
				{ID: 2, Name: "Belltown", Lat: 47.6140, Lon: -122.3450},
			}

			resp := get("/api/neighborhood?lat=47.6185&lon=-122.3405")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var body model.Neighborhood
			decode(resp, &body)
			Expect(body.Canonical).To(Equal("DOWNTOWN"))
			Expect(body.OSMName).To(Equal("Belltown"))
		})

		It("returns 404 when nothing is nearby", func() {
			resp := get("/api/neighborhood?lat=47.6185&lon=-122.3405")
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
			resp.Body.Close()
		})

		It("validates the coordinates", func() {
			resp := get("/api/neighborhood?lat=north&lon=-122.3")
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
			resp.Body.Close()

			resp = get("/api/neighborhood?lat=10&lon=-122.3")
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
			var body ErrorResponse
			decode(resp, &body)
			Expect(body.Fields).To(HaveLen(1))
			Expect(body.Fields[0].Field).To(Equal("lat"))
		})

		It("maps an Overpass failure to 502", func() {
			places.err = errors.New("timeout")

			resp := get("/api/neighborhood?lat=47.6185&lon=-122.3405")
			Expect(resp.StatusCode).To(Equal(http.StatusBadGateway))
			resp.Body.Close()
		})
	})

	Describe("operational endpoints", func() {
		It("reports health", func() {
			resp := get("/healthz")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			resp.Body.Close()
		})

		It("exposes prediction metrics", func() {
			post("/api/predict", officeBody).Body.Close()

			resp := get("/metrics")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			defer resp.Body.Close()
			text, err := io.ReadAll(resp.Body)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(text)).To(ContainSubstring(`energy_prediction_requests_total{outcome="success"} 1`))
		})
	})
})

var _ = Describe("Handler without Overpass", func() {
	It("reports the lookup as unavailable", func() {
		artifacts, err := repository.LoadArtifacts("../../artifacts")
		Expect(err).NotTo(HaveOccurred())
		pipeline, err := core.NewPipeline(artifacts)
		Expect(err).NotTo(HaveOccurred())
		service := core.NewPredictionService(pipeline, &stubModel{}, nil, false, nil, zap.NewNop())

		rec := httptest.NewRecorder()
		NewHandler(service, nil, prometheus.NewRegistry(), zap.NewNop()).
			GetNeighborhood(rec, httptest.NewRequest(http.MethodGet, "/api/neighborhood?lat=47.6&lon=-122.3", nil))
		Expect(rec.Code).To(Equal(http.StatusServiceUnavailable))
	})
})
