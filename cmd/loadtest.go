package cmd

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// LoadTestConfig holds configuration for load testing
type LoadTestConfig struct {
	BaseURL         string
	OccurrenceID    uuid.UUID
	Absences        []AbsenceRef
	ConcurrentUsers int
	ReadsPerStudent int
	Password        string
}

// AbsenceRef is one student absence to be made up during the race.
type AbsenceRef struct {
	StudentID    string
	AttendanceID uuid.UUID
}

// EnrollRequest mirrors the body of POST /api/v1/makeup/enroll
type EnrollRequest struct {
	StudentID    string    `json:"student_id"`
	AttendanceID uuid.UUID `json:"attendance_id"`
	OccurrenceID uuid.UUID `json:"occurrence_id"`
}

// LoadTestResult holds the results of load testing
type LoadTestResult struct {
	TotalRequests     int
	Enrolled          int
	Rejected          int
	FailedReqs        int
	ReadRequests      int
	AvgResponseTimeMs float64
	MaxResponseTimeMs int64
	MinResponseTimeMs int64
	ThroughputRPS     float64
	RejectionsByCause map[string]int
	ErrorsByType      map[string]int
}

// LoadTester races students for the seats of a single occurrence
type LoadTester struct {
	config    LoadTestConfig
	client    *http.Client
	tokens    map[string]string
	results   LoadTestResult
	mutex     sync.Mutex
	startTime time.Time
}

// NewLoadTester creates a new load tester
func NewLoadTester(config LoadTestConfig) *LoadTester {
	return &LoadTester{
		config: config,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		tokens: make(map[string]string),
		results: LoadTestResult{
			RejectionsByCause: make(map[string]int),
			ErrorsByType:      make(map[string]int),
		},
	}
}

// ReadAbsences parses "student_id,attendance_id" lines; blank lines and # comments are skipped.
func ReadAbsences(path string) ([]AbsenceRef, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var refs []AbsenceRef
	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		student, attendance, ok := strings.Cut(text, ",")
		if !ok {
			return nil, fmt.Errorf("line %d: expected student_id,attendance_id", line)
		}
		id, err := uuid.Parse(strings.TrimSpace(attendance))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		refs = append(refs, AbsenceRef{StudentID: strings.TrimSpace(student), AttendanceID: id})
	}
	return refs, scanner.Err()
}

// Login fetches a token per student when a password is configured.
func (lt *LoadTester) Login(ctx context.Context) error {
	if lt.config.Password == "" {
		return nil
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(lt.config.ConcurrentUsers)
	for _, ref := range lt.config.Absences {
		studentID := ref.StudentID
		g.Go(func() error {
			token, err := lt.login(ctx, studentID)
			if err != nil {
				return fmt.Errorf("login %s: %w", studentID, err)
			}
			lt.mutex.Lock()
			lt.tokens[studentID] = token
			lt.mutex.Unlock()
			return nil
		})
	}
	return g.Wait()
}

func (lt *LoadTester) login(ctx context.Context, studentID string) (string, error) {
	body, _ := json.Marshal(map[string]string{"identifier": studentID, "password": lt.config.Password})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, lt.config.BaseURL+"/api/v1/auth/login", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := lt.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("status %d", resp.StatusCode)
	}

	var envelope struct {
		Data struct {
			AccessToken string `json:"access_token"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return "", err
	}
	return envelope.Data.AccessToken, nil
}

// RunLoadTest has every student look up eligible sessions, then races the enrollments.
func (lt *LoadTester) RunLoadTest(ctx context.Context) {
	fmt.Printf("Racing %d students for occurrence %s with %d concurrent users...\n",
		len(lt.config.Absences), lt.config.OccurrenceID, lt.config.ConcurrentUsers)

	lt.startTime = time.Now()

	lookups, lookupCtx := errgroup.WithContext(ctx)
	lookups.SetLimit(lt.config.ConcurrentUsers)
	for _, ref := range lt.config.Absences {
		ref := ref
		lookups.Go(func() error {
			for i := 0; i < lt.config.ReadsPerStudent; i++ {
				lt.lookup(lookupCtx, ref)
			}
			return nil
		})
	}
	_ = lookups.Wait()

	enrollments, enrollCtx := errgroup.WithContext(ctx)
	enrollments.SetLimit(lt.config.ConcurrentUsers)
	for _, ref := range lt.config.Absences {
		ref := ref
		enrollments.Go(func() error {
			lt.enroll(enrollCtx, ref)
			return nil
		})
	}
	_ = enrollments.Wait()

	lt.calculateMetrics()
	lt.printResults()
}

func (lt *LoadTester) lookup(ctx context.Context, ref AbsenceRef) {
	url := fmt.Sprintf("%s/api/v1/students/%s/absences/%s/eligible-sessions", lt.config.BaseURL, ref.StudentID, ref.AttendanceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		lt.recordError("build_request")
		return
	}
	lt.authorize(req, ref.StudentID)

	startTime := time.Now()
	resp, err := lt.client.Do(req)
	if err != nil {
		lt.recordError("http_request")
		return
	}
	resp.Body.Close()

	lt.mutex.Lock()
	lt.results.ReadRequests++
	lt.mutex.Unlock()
	lt.recordTiming(time.Since(startTime))
}

func (lt *LoadTester) enroll(ctx context.Context, ref AbsenceRef) {
	body, err := json.Marshal(EnrollRequest{
		StudentID:    ref.StudentID,
		AttendanceID: ref.AttendanceID,
		OccurrenceID: lt.config.OccurrenceID,
	})
	if err != nil {
		lt.recordError("json_marshal")
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, lt.config.BaseURL+"/api/v1/makeup/enroll", bytes.NewReader(body))
	if err != nil {
		lt.recordError("build_request")
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", "loadtest-"+ref.AttendanceID.String())
	lt.authorize(req, ref.StudentID)

	startTime := time.Now()
	resp, err := lt.client.Do(req)
	if err != nil {
		lt.recordError("http_request")
		return
	}
	defer resp.Body.Close()
	lt.recordTiming(time.Since(startTime))

	var envelope struct {
		Data struct {
			Reason string `json:"reason"`
		} `json:"data"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&envelope)
	lt.recordEnrollment(resp.StatusCode, envelope.Data.Reason)
}

func (lt *LoadTester) authorize(req *http.Request, studentID string) {
	lt.mutex.Lock()
	token := lt.tokens[studentID]
	lt.mutex.Unlock()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

func (lt *LoadTester) recordTiming(responseTime time.Duration) {
	lt.mutex.Lock()
	defer lt.mutex.Unlock()

	lt.results.TotalRequests++
	responseTimeMs := responseTime.Milliseconds()

	if lt.results.MaxResponseTimeMs < responseTimeMs {
		lt.results.MaxResponseTimeMs = responseTimeMs
	}
	if lt.results.MinResponseTimeMs == 0 || lt.results.MinResponseTimeMs > responseTimeMs {
		lt.results.MinResponseTimeMs = responseTimeMs
	}

	currentAvg := lt.results.AvgResponseTimeMs
	currentCount := float64(lt.results.TotalRequests)
	lt.results.AvgResponseTimeMs = (currentAvg*(currentCount-1) + float64(responseTimeMs)) / currentCount
}

func (lt *LoadTester) recordEnrollment(statusCode int, reason string) {
	lt.mutex.Lock()
	defer lt.mutex.Unlock()

	switch {
	case statusCode == http.StatusCreated:
		lt.results.Enrolled++
	case statusCode >= 400 && statusCode < 500 && reason != "":
		lt.results.Rejected++
		lt.results.RejectionsByCause[reason]++
	default:
		lt.results.FailedReqs++
		lt.results.ErrorsByType[fmt.Sprintf("http_%d", statusCode)]++
	}
}

func (lt *LoadTester) recordError(errorType string) {
	lt.mutex.Lock()
	defer lt.mutex.Unlock()

	lt.results.TotalRequests++
	lt.results.FailedReqs++
	lt.results.ErrorsByType[errorType]++
}

func (lt *LoadTester) calculateMetrics() {
	totalDuration := time.Since(lt.startTime)
	lt.results.ThroughputRPS = float64(lt.results.TotalRequests) / totalDuration.Seconds()
}

func (lt *LoadTester) printResults() {
	fmt.Println("\n" + strings.Repeat("=", 80))

	fmt.Printf("Test Configuration:\n")
	fmt.Printf("  - Target occurrence: %s\n", lt.config.OccurrenceID)
	fmt.Printf("  - Students: %d\n", len(lt.config.Absences))
	fmt.Printf("  - Concurrent Users: %d\n", lt.config.ConcurrentUsers)
	fmt.Printf("  - Lookups per Student: %d\n", lt.config.ReadsPerStudent)

	fmt.Printf("\nEnrollments:\n")
	fmt.Printf("  - Enrolled: %d\n", lt.results.Enrolled)
	fmt.Printf("  - Rejected: %d\n", lt.results.Rejected)
	causes := make([]string, 0, len(lt.results.RejectionsByCause))
	for cause := range lt.results.RejectionsByCause {
		causes = append(causes, cause)
	}
	sort.Strings(causes)
	for _, cause := range causes {
		fmt.Printf("      %s: %d\n", cause, lt.results.RejectionsByCause[cause])
	}
	fmt.Printf("  - Failed: %d\n", lt.results.FailedReqs)

	fmt.Printf("\nResponse Time Metrics (%d requests, %d lookups):\n", lt.results.TotalRequests, lt.results.ReadRequests)
	fmt.Printf("  - Average: %.2f ms\n", lt.results.AvgResponseTimeMs)
	fmt.Printf("  - Minimum: %d ms\n", lt.results.MinResponseTimeMs)
	fmt.Printf("  - Maximum: %d ms\n", lt.results.MaxResponseTimeMs)
	fmt.Printf("  - Requests per Second: %.2f\n", lt.results.ThroughputRPS)

	if len(lt.results.ErrorsByType) > 0 {
		fmt.Printf("\nError Breakdown:\n")
		for errorType, count := range lt.results.ErrorsByType {
			fmt.Printf("  - %s: %d\n", errorType, count)
		}
	}

	if lt.results.FailedReqs > 0 {
		fmt.Printf("\n  Server errors during the race point at storage contention\n")
	}
}

var loadtestCmd = &cobra.Command{
	Use:   "loadtest",
	Short: "Race students for the seats of one occurrence",
	Long: `Run a seat race against a running server.
Every student listed in --absences looks up its eligible sessions, then all of them
enroll in --occurrence concurrently. With a correct server the number of
Enrolled responses never exceeds the seats left, the rest are rejected with seat_full.`,
	Run: func(cmd *cobra.Command, args []string) {
		runLoadTest(cmd.Context())
	},
}

var (
	baseURL         string
	occurrenceFlag  string
	absencesFile    string
	concurrentUsers int
	readsPerStudent int
	studentPassword string
)

func init() {
	rootCmd.AddCommand(loadtestCmd)

	loadtestCmd.Flags().StringVar(&baseURL, "url", "http://localhost:8080", "Base URL of the scheduling API")
	loadtestCmd.Flags().StringVar(&occurrenceFlag, "occurrence", "", "Occurrence every student enrolls in")
	loadtestCmd.Flags().StringVar(&absencesFile, "absences", "absences.csv", "File of student_id,attendance_id lines")
	loadtestCmd.Flags().IntVar(&concurrentUsers, "concurrent", 50, "Number of concurrent users")
	loadtestCmd.Flags().IntVar(&readsPerStudent, "reads", 1, "Eligible session lookups per student before enrolling")
	loadtestCmd.Flags().StringVar(&studentPassword, "password", "", "Shared student password, when auth is enabled")
	loadtestCmd.MarkFlagRequired("occurrence")
}

func runLoadTest(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}

	occurrenceID, err := uuid.Parse(occurrenceFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid --occurrence: %v\n", err)
		os.Exit(1)
	}
	absences, err := ReadAbsences(absencesFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to read absences: %v\n", err)
		os.Exit(1)
	}
	if concurrentUsers <= 0 {
		concurrentUsers = 1
	}

	loadTester := NewLoadTester(LoadTestConfig{
		BaseURL:         strings.TrimSuffix(baseURL, "/"),
		OccurrenceID:    occurrenceID,
		Absences:        absences,
		ConcurrentUsers: concurrentUsers,
		ReadsPerStudent: readsPerStudent,
		Password:        studentPassword,
	})

	fmt.Println("Makeup Seat Race")
	fmt.Println("================")

	if err := loadTester.Login(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "login failed: %v\n", err)
		os.Exit(1)
	}
	loadTester.RunLoadTest(ctx)
}
