// Package motor drives the four actuator outputs of the vehicle.
//
// Duty values use the inverted scale of the motor driver: DutyStopped (65535)
// de-energizes an output and 0 is full drive. A side of the vehicle is a pair
// of opposed outputs, one per direction, and never has both energized.
package motor
