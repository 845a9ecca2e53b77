package handler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	projectsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storyboard_projects_created_total",
		Help: "Total number of projects created.",
	})
	storiesGeneratedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storyboard_stories_generated_total",
		Help: "Total number of story snapshots generated.",
	})
	scenesCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storyboard_scenes_created_total",
		Help: "Total number of storyboard scenes created.",
	})
	videoVersionsAddedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storyboard_video_versions_added_total",
		Help: "Total number of video versions registered.",
	})
)
